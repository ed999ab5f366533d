// Package serial provides the line-oriented channel to the greenhouse controller.
// The real implementation uses a serial port; the fake implementation allows
// testing without hardware.
package serial

import (
	"errors"
	"io"
	"time"
)

// ErrReadTimeout is returned by Port.Read when no byte arrived within the port timeout.
var ErrReadTimeout = errors.New("serial: read timeout")

// ErrLineTooLong is returned when the controller sends more than MaxLineLength
// bytes without a newline. The partial data is discarded.
var ErrLineTooLong = errors.New("serial: line too long")

// MaxLineLength bounds a single line from the controller.
const MaxLineLength = 1024

// Defaults match the controller firmware.
const (
	DefaultAddress     = "/dev/ttyACM0"
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 50 * time.Millisecond
)

// Port is an open connection to the controller.
// Read must return ErrReadTimeout (and n == 0) when nothing arrives in time.
type Port interface {
	io.ReadWriteCloser
}

// Config describes how to open the port.
type Config struct {
	Address     string
	BaudRate    int
	ReadTimeout time.Duration
}

// Opener opens a Port. It returns the raw OS error on failure; Channel.Open
// classifies it into a *ConnectError.
type Opener func(cfg Config) (Port, error)
