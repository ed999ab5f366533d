// Package gpio drives the alert LED with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// Output drives a single GPIO output line.
type Output interface {
	// Set drives the line high (on) or low.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultLEDPin is the alert LED (BCM numbering).
const DefaultLEDPin = 17

// Alert lights the LED while any trigger is active.
type Alert struct {
	out    Output
	logger *zap.Logger

	mu    sync.Mutex
	lit   bool
	known bool
}

// NewAlert creates an Alert driving out.
func NewAlert(out Output, logger *zap.Logger) *Alert {
	return &Alert{out: out, logger: logger}
}

// Update sets the LED from an evaluation result. The line is only written when
// the desired level changes.
func (a *Alert) Update(states []logic.TriggerState) {
	on := logic.States(states).AnyActive()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.known && a.lit == on {
		return
	}
	if err := a.out.Set(on); err != nil {
		a.logger.Warn("alert led write failed", zap.Bool("on", on), zap.Error(err))
		return
	}
	a.lit = on
	a.known = true
}

// Lit reports the last level written.
func (a *Alert) Lit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lit
}

// Close turns the LED off and releases the line.
func (a *Alert) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.out.Set(false); err != nil {
		a.logger.Warn("alert led off failed", zap.Error(err))
	}
	a.lit = false
	return a.out.Close()
}
