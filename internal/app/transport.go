package app

import (
	"fmt"

	"github.com/relabs-tech/motion_console/internal/config"
	"github.com/relabs-tech/motion_console/internal/transport"
)

// newTransport builds the device link the config selects. A transport
// whose prerequisites are missing comes back ErrUnsupported; that
// disables it for this session without touching the other one.
func newTransport(cfg *config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case "serial":
		return transport.NewSerial(cfg.SerialPort, cfg.SerialBaud)
	case "ws":
		return transport.NewWS(cfg.DeviceWSURL)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
