package serial

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
)

// candidatePatterns are the device nodes USB serial adapters usually appear as.
var candidatePatterns = []string{
	"/dev/serial/by-id/*",
	"/dev/ttyACM*",
	"/dev/ttyUSB*",
	"/dev/tty.usbmodem*",
	"/dev/tty.usbserial*",
}

// Candidates lists serial device nodes that may be the controller.
func Candidates() []string {
	var found []string
	for _, pattern := range candidatePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		found = append(found, matches...)
	}
	sort.Strings(found)
	return found
}

// Diagnose prints candidate devices, then tries to open cfg.Address and reports
// the classified result. It returns the open error, if any.
func Diagnose(w io.Writer, cfg Config, opener Opener, candidates []string) error {
	fmt.Fprintln(w, "Serial devices:")
	if len(candidates) == 0 {
		fmt.Fprintln(w, "  (none found)")
	}
	for _, c := range candidates {
		fmt.Fprintf(w, "  %s\n", c)
	}

	fmt.Fprintf(w, "\nTesting %s at %d baud... ", cfg.Address, cfg.BaudRate)
	port, err := opener(cfg)
	if err != nil {
		ce := &ConnectError{Kind: classify(err), Address: cfg.Address, Err: err}
		fmt.Fprintf(w, "FAILED (%s)\n  %v\n  %s\n", ce.Kind, err, ce.Hint())
		return ce
	}
	if err := port.Close(); err != nil {
		fmt.Fprintf(w, "OK (close error: %v)\n", err)
		return nil
	}
	fmt.Fprintln(w, "OK")
	return nil
}
