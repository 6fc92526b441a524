// Package session owns the telemetry pipeline state: aggregator
// slots, clock anchor, rate window and the active orientation mode.
// Everything mutates on one loop goroutine; transport reader
// goroutines and API callers post work into the loop's mailbox. One
// drained mailbox batch is one scheduling turn, and the aggregator is
// flushed at most once per turn.
package session

import (
	"context"
	"fmt"
	"log"

	"github.com/relabs-tech/motion_console/internal/orientation"
	"github.com/relabs-tech/motion_console/internal/telemetry"
	"github.com/relabs-tech/motion_console/internal/transport"
)

// Emission is the canonical per-sample output: the coalesced sample
// plus the derived clock delta and throughput figure.
type Emission struct {
	Sample telemetry.Sample `json:"sample"`
	DT     float64          `json:"dt"`
	Rate   int              `json:"rate_per_second"`
}

// Listeners are the lifecycle events surfaced to UI collaborators.
// Register before Start; they are invoked from the loop goroutine and
// must not block.
type Listeners struct {
	Connected      func(transportName string)
	Disconnected   func(err error)
	Sample         func(e Emission)
	DeviceFault    func(msg string)
	TransportError func(err error)

	// SmoothingControl reports whether the smoothing time-constant
	// control is meaningful in the newly entered mode, so a UI can
	// enable or grey out the affordance.
	SmoothingControl func(enabled bool)
}

// Session drives one device connection at a time through the
// decode → aggregate → clock → dispatch pipeline.
type Session struct {
	consumer  orientation.Consumer
	agg       telemetry.Aggregator
	clock     telemetry.ClockTracker
	rate      telemetry.RateMeter
	dispatch  *orientation.Dispatcher
	listeners Listeners

	// loop-owned
	tr        transport.Transport
	connected bool

	mailbox chan func()
	done    chan struct{}
	stopped chan struct{}
}

// New builds a session feeding the given consumer. The dispatcher
// starts in accel-tilt mode.
func New(consumer orientation.Consumer, l Listeners) *Session {
	s := &Session{
		consumer:  consumer,
		listeners: l,
		mailbox:   make(chan func(), 256),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	s.dispatch = orientation.NewDispatcher(consumer, &s.clock)
	s.dispatch.OnSmoothingControl = l.SmoothingControl
	return s
}

// Start launches the loop goroutine.
func (s *Session) Start() {
	go s.run()
}

// Stop disconnects and terminates the loop.
func (s *Session) Stop() {
	s.post(func() {
		s.detach(nil)
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	})
	<-s.stopped
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.mailbox:
			fn()
			// Drain whatever else already arrived: that batch is one
			// scheduling turn, and it flushes exactly once.
			for n := len(s.mailbox); n > 0; n-- {
				(<-s.mailbox)()
			}
			s.flush()
		}
	}
}

func (s *Session) post(fn func()) {
	select {
	case s.mailbox <- fn:
	case <-s.done:
	}
}

// flush emits at most one coalesced sample for the turn.
func (s *Session) flush() {
	sample, ok := s.agg.Flush()
	if !ok {
		return
	}
	dt := s.clock.Observe(sample.DeviceTime)
	rate := s.rate.Observe(sample.DeviceTime)
	s.dispatch.Dispatch(sample, dt)
	if s.listeners.Sample != nil {
		s.listeners.Sample(Emission{Sample: sample, DT: dt, Rate: rate})
	}
}

// clearCaches wipes every piece of per-connection state. It runs on
// entering and on leaving the connected state, so nothing stale can
// be emitted across a session boundary.
func (s *Session) clearCaches() {
	s.agg.Reset()
	s.clock.Reset()
	s.rate.Reset()
}

// detach clears caches, drops the transport and reports the
// disconnect. Safe to call when already disconnected.
func (s *Session) detach(err error) {
	if !s.connected {
		return
	}
	s.clearCaches()
	tr := s.tr
	s.tr = nil
	s.connected = false
	if tr != nil {
		tr.Close()
	}
	if s.listeners.Disconnected != nil {
		s.listeners.Disconnected(err)
	}
}

// Connect establishes the link in the caller's goroutine, then hands
// the live transport to the loop. On error the session keeps no
// partial state and stays disconnected.
func (s *Session) Connect(ctx context.Context, tr transport.Transport) error {
	h := &handler{s: s, tr: tr}
	if err := tr.Connect(ctx, h); err != nil {
		return fmt.Errorf("session: connect %s: %w", tr.Name(), err)
	}
	s.post(func() {
		s.detach(nil)
		s.clearCaches()
		s.tr = tr
		s.connected = true
		log.Printf("session: connected via %s", tr.Name())
		if s.listeners.Connected != nil {
			s.listeners.Connected(tr.Name())
		}
	})
	return nil
}

// Disconnect requests a teardown. Caches are cleared on the loop
// before the disconnected event is observable, so no stale pending
// sample can flush afterwards.
func (s *Session) Disconnect() {
	s.post(func() { s.detach(nil) })
}

// SetMode switches the orientation dispatch mode.
func (s *Session) SetMode(m orientation.Mode) {
	s.post(func() {
		log.Printf("session: orientation mode -> %s", m)
		s.dispatch.SetMode(m)
	})
}

// SetSmoothingTimeConstant forwards the control value to the
// consumer.
func (s *Session) SetSmoothingTimeConstant(ms float64) {
	s.post(func() { s.consumer.SetSmoothingTimeConstant(ms) })
}

// ResetOrientation snaps the consumer back to identity, invalidates
// the clock anchor and tells the firmware to zero its integration.
// The command is fire and forget: failure is reported, the telemetry
// stream is untouched.
func (s *Session) ResetOrientation() {
	s.post(func() {
		s.consumer.ResetOrientation()
		s.clock.Reset()
		tr := s.tr
		if tr == nil {
			return
		}
		go func() {
			if err := tr.SendCommand(transport.CmdResetGyro); err != nil {
				log.Printf("session: %v", err)
				s.post(func() {
					if s.listeners.TransportError != nil {
						s.listeners.TransportError(err)
					}
				})
			}
		}()
	})
}

// handler adapts one transport's deliveries onto the session loop.
// It remembers which transport it belongs to so a straggling callback
// from a replaced connection is ignored.
type handler struct {
	s  *Session
	tr transport.Transport
}

func (h *handler) live() bool { return h.s.tr == h.tr }

func (h *handler) SetAccel(v telemetry.Vec3) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetAccel(v)
		}
	})
}

func (h *handler) SetGyro(v telemetry.Vec3) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetGyro(v)
		}
	})
}

func (h *handler) SetMag(v telemetry.Vec3) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetMag(v)
		}
	})
}

func (h *handler) SetGyroIntegrated(e telemetry.Euler) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetGyroIntegrated(e)
		}
	})
}

func (h *handler) SetFusion(e telemetry.Euler) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetFusion(e)
		}
	})
}

func (h *handler) SetFusionMag(e telemetry.Euler) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetFusionMag(e)
		}
	})
}

func (h *handler) SetTemperature(t float64) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetTemperature(t)
		}
	})
}

func (h *handler) SetDeviceTime(t float64) {
	h.s.post(func() {
		if h.live() {
			h.s.agg.SetDeviceTime(t)
		}
	})
}

func (h *handler) Packet(p telemetry.Packet) {
	h.s.post(func() {
		if h.live() {
			p.Apply(&h.s.agg)
		}
	})
}

func (h *handler) DeviceFault(msg string) {
	h.s.post(func() {
		if !h.live() {
			return
		}
		log.Printf("session: device fault: %s", msg)
		if h.s.listeners.DeviceFault != nil {
			h.s.listeners.DeviceFault(msg)
		}
	})
}

func (h *handler) Closed(err error) {
	h.s.post(func() {
		if !h.live() {
			return
		}
		if err != nil {
			log.Printf("session: link dropped: %v", err)
			if h.s.listeners.TransportError != nil {
				h.s.listeners.TransportError(err)
			}
		}
		h.s.detach(err)
	})
}
