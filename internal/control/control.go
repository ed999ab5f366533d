// Package control turns trigger states into actuator commands and writes them
// to the controller.
package control

import (
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
)

// Sender writes a validated command to the controller.
// serial.Channel satisfies it.
type Sender interface {
	Send(cmd logic.Command) error
}

// Reconciler applies reconcile plans and ad-hoc commands through one Sender.
type Reconciler struct {
	sender Sender
	logger *zap.Logger
}

func NewReconciler(sender Sender, logger *zap.Logger) *Reconciler {
	return &Reconciler{sender: sender, logger: logger}
}

// Apply computes the plan for states and sends its commands in order.
// The plan is returned even if a send fails.
func (r *Reconciler) Apply(states logic.StateSet) (logic.Plan, error) {
	plan := logic.Reconcile(states)
	for _, cmd := range plan.Commands() {
		if err := r.Submit(cmd); err != nil {
			return plan, err
		}
	}
	r.logger.Info("actuators reconciled",
		zap.Int("fan_speed", plan.FanSpeed),
		zap.Bool("valve_open", plan.ValveOpen))
	return plan, nil
}

// Submit validates and sends a single command.
// Invalid commands are rejected with logic.ErrInvalidCommand before transmission.
func (r *Reconciler) Submit(cmd logic.Command) error {
	if err := cmd.Validate(); err != nil {
		metrics.CommandsRejectedTotal.Inc()
		return err
	}
	if err := r.sender.Send(cmd); err != nil {
		r.logger.Error("command send failed", zap.Stringer("command", cmd), zap.Error(err))
		return err
	}
	metrics.CommandsSentTotal.WithLabelValues(string(cmd.Kind)).Inc()
	r.logger.Debug("command sent", zap.Stringer("command", cmd))
	return nil
}
