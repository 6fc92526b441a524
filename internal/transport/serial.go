package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
)

// Serial reads the device's line-oriented transport: NMEA-framed
// sentences over a serial port. Lines that do not parse are dropped
// and counted; a single garbled line never disturbs the stream.
type Serial struct {
	opts serial.OpenOptions

	// openPort is swapped for an in-memory pipe in tests.
	openPort func() (io.ReadWriteCloser, error)

	mu      sync.Mutex
	port    io.ReadWriteCloser
	closing bool
	dropped int
}

// NewSerial prepares a serial transport on the named port. An empty
// port name means the host has no serial link configured and the
// transport is unsupported for this session.
func NewSerial(portName string, baudRate uint) (*Serial, error) {
	if portName == "" {
		return nil, fmt.Errorf("serial: %w", ErrUnsupported)
	}
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	s := &Serial{opts: opts}
	s.openPort = func() (io.ReadWriteCloser, error) { return serial.Open(s.opts) }
	return s, nil
}

func (s *Serial) Name() string { return "serial:" + s.opts.PortName }

// Connect opens the port and starts the reader goroutine.
func (s *Serial) Connect(ctx context.Context, h Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	port, err := s.openPort()
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", s.opts.PortName, err)
	}

	s.mu.Lock()
	s.port = port
	s.closing = false
	s.dropped = 0
	s.mu.Unlock()

	log.Printf("serial: %s open at %d baud", s.opts.PortName, s.opts.BaudRate)
	go s.readLoop(port, h)
	return nil
}

func (s *Serial) readLoop(port io.ReadWriteCloser, h Handler) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !applyLine(line, h) {
			s.mu.Lock()
			s.dropped++
			n := s.dropped
			s.mu.Unlock()
			if n == 1 || n%100 == 0 {
				log.Printf("serial: dropped %d unparseable lines (last: %q)", n, line)
			}
		}
	}

	err := scanner.Err()
	s.mu.Lock()
	closing := s.closing
	s.port = nil
	s.mu.Unlock()

	if closing {
		h.Closed(nil)
		return
	}
	if err == nil {
		err = io.EOF
	}
	h.Closed(fmt.Errorf("serial: read: %w", err))
}

// SendCommand writes one newline-terminated command to the port.
func (s *Serial) SendCommand(cmd string) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	if port == nil {
		return fmt.Errorf("serial: send %q: %w", cmd, ErrNotConnected)
	}
	if _, err := io.WriteString(port, cmd+"\n"); err != nil {
		return fmt.Errorf("serial: send %q: %w", cmd, err)
	}
	return nil
}

// Close shuts the port; the reader then reports a clean close.
func (s *Serial) Close() error {
	s.mu.Lock()
	port := s.port
	s.closing = port != nil
	s.mu.Unlock()

	if port == nil {
		return nil
	}
	return port.Close()
}

var _ Transport = (*Serial)(nil)
