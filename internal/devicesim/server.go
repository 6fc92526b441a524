package devicesim

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/motion_console/internal/telemetry"
	"github.com/relabs-tech/motion_console/internal/transport"
)

// Server speaks the device side of the packet transport: binary
// telemetry frames at a fixed rate, text commands in. Serving the
// telemetry-only subprotocol imitates older firmware without a
// control channel.
type Server struct {
	gen      *Generator
	interval time.Duration
	upgrader websocket.Upgrader
	control  bool
}

// NewServer creates a simulated device emitting one packet per
// interval, offering the given subprotocol (imu.v2 or imu.v1).
func NewServer(gen *Generator, interval time.Duration, protocol string) *Server {
	return &Server{
		gen:      gen,
		interval: interval,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{protocol},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
		control: protocol == transport.ProtoTelemetryControl,
	}
}

// ServeHTTP upgrades the connection and streams telemetry until the
// client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("devicesim: upgrade error: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("devicesim: viewer connected from %s (%s)", r.RemoteAddr, conn.Subprotocol())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !s.control {
				continue
			}
			cmd := strings.TrimSpace(string(data))
			if cmd == transport.CmdResetGyro {
				log.Printf("devicesim: gyro integration reset")
				s.gen.ResetGyro()
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Printf("devicesim: viewer %s gone", r.RemoteAddr)
			return
		case <-ticker.C:
			buf := telemetry.EncodePacket(s.gen.Packet())
			if err := conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
				return
			}
		}
	}
}
