package serial

import (
	"errors"

	goserial "github.com/goburrow/serial"
)

// RealPort is a serial port opened through the OS.
type RealPort struct {
	port goserial.Port
}

// OpenReal opens the controller's serial port at 8N1.
func OpenReal(cfg Config) (Port, error) {
	p, err := goserial.Open(&goserial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &RealPort{port: p}, nil
}

// Read reads available bytes, returning ErrReadTimeout when the line is idle.
func (p *RealPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if errors.Is(err, goserial.ErrTimeout) {
		return n, ErrReadTimeout
	}
	return n, err
}

// Write writes raw bytes to the port.
func (p *RealPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the port.
func (p *RealPort) Close() error {
	return p.port.Close()
}
