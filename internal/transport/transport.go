// Package transport normalizes the device's two physical links onto
// one field-group update contract. The wire formats differ (80-byte
// binary packets over websocket, NMEA-framed lines over serial); the
// unification point is the telemetry.Sink the handler embeds, not the
// framing.
package transport

import (
	"context"
	"errors"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// CmdResetGyro asks the firmware to zero its gyro integration.
const CmdResetGyro = "RESET_GYRO"

var (
	// ErrUnsupported means the host lacks what this transport needs
	// (no serial port configured, no device URL). It disables the
	// transport for the session; the other transport is unaffected.
	ErrUnsupported = errors.New("transport not supported on this host")

	// ErrNoTelemetryChannel means the link came up but the device
	// offers no telemetry stream. The connection attempt fails whole;
	// no partial session state is kept.
	ErrNoTelemetryChannel = errors.New("device offers no telemetry channel")

	// ErrNoControlChannel means commands cannot be delivered (older
	// firmware). The telemetry stream is unaffected; each command
	// send fails individually with this error.
	ErrNoControlChannel = errors.New("control channel unavailable")

	// ErrNotConnected reports a command sent while the link is down.
	ErrNotConnected = errors.New("not connected")
)

// Handler receives everything a transport produces. Methods are
// invoked from the transport's reader goroutine; the session
// serializes them onto its own loop.
//
// The binary transport delivers whole packets; the serial transport
// delivers single field groups through the embedded Sink. Both end up
// in the same aggregator slots.
type Handler interface {
	telemetry.Sink

	// Packet delivers one decoded binary telemetry packet.
	Packet(p telemetry.Packet)

	// DeviceFault reports an operational problem the device itself
	// signalled. It is independent of connection state.
	DeviceFault(msg string)

	// Closed reports that the link dropped. err is nil on a clean
	// local close.
	Closed(err error)
}

// Transport is one physical link to the device.
type Transport interface {
	// Connect establishes the link, discovers the telemetry channel
	// and starts the reader. On error no partial state is retained.
	Connect(ctx context.Context, h Handler) error

	// Close tears the link down. The handler's Closed callback fires
	// with a nil error.
	Close() error

	// SendCommand writes one newline-terminated text command.
	// Best effort: a failure never disturbs the telemetry stream.
	SendCommand(cmd string) error

	// Name identifies the transport in logs and status output.
	Name() string
}
