// Package transport provides the byte-oriented device connections the acquisition
// engine reads from: a serial port and a synthetic device for demos and tests.
package transport

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned by ReadLine when no complete line arrived in time.
	ErrTimeout = errors.New("transport: read timeout")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport: closed")
)

// Transport is a line-oriented device connection. It is owned by a single reader.
type Transport interface {
	// ReadLine blocks for at most timeout and returns one line without its
	// delimiter and trailing whitespace, or ErrTimeout.
	ReadLine(timeout time.Duration) (string, error)
	Write(p []byte) error
	Close() error
}

// Opener opens a transport by device name and baud rate.
type Opener interface {
	Open(name string, baud int) (Transport, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(name string, baud int) (Transport, error)

func (f OpenerFunc) Open(name string, baud int) (Transport, error) { return f(name, baud) }

// DeviceOpener opens MockPort as a synthetic device and any other name as a serial port.
type DeviceOpener struct {
	MockInterval time.Duration // line period of the synthetic device; zero means DefaultMockInterval
}

func (o DeviceOpener) Open(name string, baud int) (Transport, error) {
	if strings.EqualFold(strings.TrimSpace(name), MockPort) {
		return NewMock(o.MockInterval, DefaultNoiseEvery), nil
	}
	return OpenSerial(name, baud)
}
