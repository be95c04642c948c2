package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the sensor board firmware.
const DefaultBaudRate = 115200

// port is the subset of serial.Port used here.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Serial is a Transport over a serial port (8N1).
type Serial struct {
	name  string
	port  port
	buf   []byte
	lines lineBuffer
}

// OpenSerial opens the named port. Busy or missing devices are reported as errors.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, describePortError(err))
	}
	return newSerial(name, p), nil
}

func newSerial(name string, p port) *Serial {
	return &Serial{name: name, port: p, buf: make([]byte, 256)}
}

// ReadLine returns the next complete line, reading from the port until timeout elapses.
func (s *Serial) ReadLine(timeout time.Duration) (string, error) {
	if s.port == nil {
		return "", ErrClosed
	}
	deadline := time.Now().Add(timeout)
	for {
		if line, ok := s.lines.next(); ok {
			return line, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrTimeout
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("serial %s: set read timeout: %w", s.name, err)
		}
		n, err := s.port.Read(s.buf)
		if err != nil {
			return "", fmt.Errorf("serial %s: read: %w", s.name, err)
		}
		if n == 0 {
			// go.bug.st/serial reports an expired read timeout as (0, nil).
			return "", ErrTimeout
		}
		s.lines.push(s.buf[:n])
	}
}

// Write sends p in full.
func (s *Serial) Write(p []byte) error {
	if s.port == nil {
		return ErrClosed
	}
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("serial %s: write: %w", s.name, err)
		}
		p = p[n:]
	}
	return nil
}

// Close releases the port. Closing twice is a no-op.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// describePortError turns the library's error codes into readable messages.
func describePortError(err error) error {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return err
	}
	switch pe.Code() {
	case serial.PortBusy:
		return fmt.Errorf("device busy: %w", err)
	case serial.PortNotFound:
		return fmt.Errorf("device not found: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	default:
		return err
	}
}
