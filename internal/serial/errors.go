package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ConnectKind classifies why the port could not be opened.
type ConnectKind string

const (
	PermissionDenied    ConnectKind = "PERMISSION_DENIED"
	DeviceBusyOrMissing ConnectKind = "DEVICE_BUSY_OR_MISSING"
	Unknown             ConnectKind = "UNKNOWN"
)

// ConnectError is returned by Channel.Open. It is fatal to the connection,
// not the process, and is never retried automatically.
type ConnectError struct {
	Kind    ConnectKind
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("open %s: %s: %v", e.Address, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Hint returns operator-facing remediation steps for the error class.
func (e *ConnectError) Hint() string {
	switch e.Kind {
	case PermissionDenied:
		return "another program may hold the port (close the Arduino IDE or serial monitor), " +
			"or this user lacks access (add it to the dialout group, or unplug and replug the USB cable)"
	case DeviceBusyOrMissing:
		return "check the USB cable and that the controller is powered; " +
			"run with -diagnose to list candidate serial devices"
	default:
		return "run with -diagnose to list candidate serial devices and test access"
	}
}

// classify maps an OS open error to a ConnectKind.
func classify(err error) ConnectKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.EBUSY),
		errors.Is(err, syscall.ENXIO),
		errors.Is(err, syscall.ENODEV):
		return DeviceBusyOrMissing
	}
	return Unknown
}
