// Package greenhouse exposes the controller's operations to the API layer.
package greenhouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/control"
	"github.com/sweeney/greenhouse-controller/internal/engine"
	"github.com/sweeney/greenhouse-controller/internal/history"
	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/status"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

// ResetResult is the actuator state applied by ResetDevices.
type ResetResult struct {
	FanSpeed  int                  `json:"fan_speed"`
	ValveOpen bool                 `json:"valve_open"`
	Triggers  []logic.TriggerState `json:"triggers"`
}

// Service ties the stores, trigger engine, reconciler and history together.
// Every method completes synchronously.
type Service struct {
	readings   store.ReadingStore
	engine     *engine.Engine
	reconciler *control.Reconciler
	aggregator *history.Aggregator
	tracker    *status.Tracker
	logger     *zap.Logger
}

// New creates a Service. tracker may be nil.
func New(readings store.ReadingStore, eng *engine.Engine, reconciler *control.Reconciler, aggregator *history.Aggregator, tracker *status.Tracker, logger *zap.Logger) *Service {
	return &Service{
		readings:   readings,
		engine:     eng,
		reconciler: reconciler,
		aggregator: aggregator,
		tracker:    tracker,
		logger:     logger,
	}
}

// LatestReading returns the newest stored reading. ok is false when none exists.
func (s *Service) LatestReading(ctx context.Context) (logic.Reading, bool, error) {
	return s.readings.Latest(ctx)
}

// SubmitCommand validates cmd and writes it to the controller.
// Out-of-range commands fail with logic.ErrInvalidCommand and are not sent.
func (s *Service) SubmitCommand(cmd logic.Command) error {
	if err := s.reconciler.Submit(cmd); err != nil {
		return err
	}
	if s.tracker != nil {
		s.tracker.RecordCommand()
	}
	s.logger.Info("operator command sent", zap.Stringer("command", cmd))
	return nil
}

// SubmitCommandText parses a wire token such as "F:128" or "W1" and submits it.
func (s *Service) SubmitCommandText(text string) (logic.Command, error) {
	cmd, err := logic.ParseCommand(text)
	if err != nil {
		return logic.Command{}, err
	}
	return cmd, s.SubmitCommand(cmd)
}

// TriggerStates evaluates every trigger against the latest reading. It
// appends a batch to the trigger log, so it is not read-only.
func (s *Service) TriggerStates(ctx context.Context) ([]logic.TriggerState, error) {
	return s.engine.Evaluate(ctx)
}

// ResetDevices re-evaluates the triggers and re-applies the reconciled
// actuator state. Calling it again with no new reading sends the same commands.
func (s *Service) ResetDevices(ctx context.Context) (ResetResult, error) {
	states, err := s.engine.Evaluate(ctx)
	if err != nil {
		return ResetResult{}, fmt.Errorf("evaluate triggers: %w", err)
	}

	plan, err := s.reconciler.Apply(logic.States(states))
	if err != nil {
		return ResetResult{}, fmt.Errorf("apply actuator state: %w", err)
	}
	if s.tracker != nil {
		for range plan.Commands() {
			s.tracker.RecordCommand()
		}
	}

	return ResetResult{
		FanSpeed:  plan.FanSpeed,
		ValveOpen: plan.ValveOpen,
		Triggers:  states,
	}, nil
}

// History parses the raw bounds and aggregates the window. Missing or
// malformed bounds fail with history.ErrRange.
func (s *Service) History(ctx context.Context, start, end string) (history.Result, error) {
	from, to, err := history.ParseRange(start, end)
	if err != nil {
		return history.Result{}, err
	}
	return s.aggregator.Aggregate(ctx, from, to)
}
