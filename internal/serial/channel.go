package serial

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// Channel owns the process-wide connection to the controller.
// Only the ingestion loop calls ReadLine; any goroutine may call Write or Send.
// Writes are serialized so commands reach the wire in call order.
type Channel struct {
	cfg    Config
	opener Opener
	logger *zap.Logger

	mu   sync.Mutex // guards port and serializes writes
	port Port

	// Owned by the ReadLine caller.
	partial []byte
	buf     [256]byte
}

// NewChannel creates a closed channel. Call Open to connect.
func NewChannel(cfg Config, opener Opener, logger *zap.Logger) *Channel {
	return &Channel{
		cfg:    cfg,
		opener: opener,
		logger: logger,
	}
}

// Address returns the configured device address.
func (c *Channel) Address() string {
	return c.cfg.Address
}

// Open connects to the controller. Failures are returned as *ConnectError.
// Opening an already-open channel is a no-op.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return nil
	}

	port, err := c.opener(c.cfg)
	if err != nil {
		return &ConnectError{Kind: classify(err), Address: c.cfg.Address, Err: err}
	}
	c.port = port
	c.logger.Info("serial connected",
		zap.String("address", c.cfg.Address),
		zap.Int("baud", c.cfg.BaudRate),
	)
	return nil
}

// IsOpen reports whether a port is held.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

func (c *Channel) current() Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// ReadLine returns the next complete line without its line ending.
// ok is false when no complete line arrived within the port timeout or the
// channel is closed. Partial lines are kept for the next call.
func (c *Channel) ReadLine() (line string, ok bool, err error) {
	port := c.current()
	if port == nil {
		return "", false, nil
	}

	for {
		if i := bytes.IndexByte(c.partial, '\n'); i >= 0 {
			line := string(bytes.TrimRight(c.partial[:i], "\r"))
			c.partial = append(c.partial[:0], c.partial[i+1:]...)
			return line, true, nil
		}

		n, err := port.Read(c.buf[:])
		c.partial = append(c.partial, c.buf[:n]...)
		if len(c.partial) > MaxLineLength {
			c.partial = c.partial[:0]
			return "", false, ErrLineTooLong
		}
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("read %s: %w", c.cfg.Address, err)
		}
		if n == 0 {
			return "", false, nil
		}
	}
}

// Write sends raw bytes. Writing to a closed channel is a silent no-op.
func (c *Channel) Write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	if _, err := c.port.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", c.cfg.Address, err)
	}
	return nil
}

// Send validates cmd and writes its newline-terminated token.
func (c *Channel) Send(cmd logic.Command) error {
	tok, err := cmd.Token()
	if err != nil {
		return err
	}
	return c.Write([]byte(tok + "\n"))
}

// Close releases the port. Closing a closed channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	c.logger.Info("serial connection closed", zap.String("address", c.cfg.Address))
	if err != nil {
		return fmt.Errorf("close %s: %w", c.cfg.Address, err)
	}
	return nil
}
