package transport

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// Subprotocols the packet transport understands. v2 carries telemetry
// and accepts text commands; v1 (older firmware) is telemetry only.
const (
	ProtoTelemetryControl = "imu.v2"
	ProtoTelemetryOnly    = "imu.v1"
)

// faultPrefix marks a device-reported fault on a text frame.
const faultPrefix = "!"

// WS is the binary packet transport: a websocket whose binary frames
// are 80-byte telemetry packets. Control-channel availability is
// negotiated through the subprotocol; when the device answers with
// the telemetry-only protocol the connection still works, commands
// just fail individually.
type WS struct {
	url string

	mu      sync.Mutex
	conn    *websocket.Conn
	control bool
	closing bool
	dropped int
}

// NewWS prepares a packet transport for the given ws:// or wss:// URL.
// An empty URL means no packet-capable device is configured.
func NewWS(url string) (*WS, error) {
	if url == "" {
		return nil, fmt.Errorf("ws: %w", ErrUnsupported)
	}
	return &WS{url: url}, nil
}

func (w *WS) Name() string { return "ws:" + w.url }

// ControlAvailable reports whether the negotiated protocol accepts
// commands. Valid after Connect.
func (w *WS) ControlAvailable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.control
}

// Connect dials the device and negotiates the telemetry channel. A
// device accepting neither subprotocol has no telemetry stream worth
// connecting to, so the attempt fails as a whole.
func (w *WS) Connect(ctx context.Context, h Handler) error {
	dialer := websocket.Dialer{
		Subprotocols: []string{ProtoTelemetryControl, ProtoTelemetryOnly},
	}
	conn, resp, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("ws: dial %s: %w", w.url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	control := false
	switch conn.Subprotocol() {
	case ProtoTelemetryControl:
		control = true
	case ProtoTelemetryOnly:
		// Older firmware; commands will fail per call.
		log.Printf("ws: %s negotiated %s, control channel unavailable", w.url, ProtoTelemetryOnly)
	default:
		conn.Close()
		return fmt.Errorf("ws: dial %s: %w", w.url, ErrNoTelemetryChannel)
	}

	w.mu.Lock()
	w.conn = conn
	w.control = control
	w.closing = false
	w.dropped = 0
	w.mu.Unlock()

	go w.readLoop(conn, h)
	return nil
}

func (w *WS) readLoop(conn *websocket.Conn, h Handler) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			closing := w.closing
			w.conn = nil
			w.control = false
			w.mu.Unlock()

			if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.Closed(nil)
			} else {
				h.Closed(fmt.Errorf("ws: read: %w", err))
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			p, err := telemetry.DecodePacket(data)
			if err != nil {
				// Malformed packet: drop it, keep the stream.
				w.mu.Lock()
				w.dropped++
				n := w.dropped
				w.mu.Unlock()
				if n == 1 || n%100 == 0 {
					log.Printf("ws: dropped %d malformed packets (last length %d)", n, len(data))
				}
				continue
			}
			h.Packet(p)
		case websocket.TextMessage:
			if msg, ok := strings.CutPrefix(strings.TrimSpace(string(data)), faultPrefix); ok {
				h.DeviceFault(msg)
			}
		}
	}
}

// SendCommand writes a newline-terminated text command over the
// negotiated control channel.
func (w *WS) SendCommand(cmd string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("ws: send %q: %w", cmd, ErrNotConnected)
	}
	if !w.control {
		return fmt.Errorf("ws: send %q: %w", cmd, ErrNoControlChannel)
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(cmd+"\n")); err != nil {
		return fmt.Errorf("ws: send %q: %w", cmd, err)
	}
	return nil
}

// Close tears the websocket down; the reader then reports a clean
// close.
func (w *WS) Close() error {
	w.mu.Lock()
	conn := w.conn
	w.closing = conn != nil
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	// WriteControl may overlap a SendCommand in flight on another
	// goroutine; WriteMessage may not.
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

var _ Transport = (*WS)(nil)
