// Package engine evaluates trigger predicates against the latest reading,
// detects transitions, and appends each evaluation to the trigger log.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

// EdgeNotifier receives trigger transitions. NotifyEdge must not block.
type EdgeNotifier interface {
	NotifyEdge(edge logic.Edge)
}

// EdgeNotifierFunc adapts a function to EdgeNotifier.
type EdgeNotifierFunc func(edge logic.Edge)

func (f EdgeNotifierFunc) NotifyEdge(edge logic.Edge) { f(edge) }

// Engine serializes evaluations. It keeps the last committed state of every
// trigger in memory, primed from the log on first use, so two evaluations of
// the same reading never report the same edge twice.
type Engine struct {
	readings store.ReadingStore
	log      store.TriggerLog
	logger   *zap.Logger

	// NewID returns the evaluation id stamped on log rows and edges.
	NewID func() string

	mu        sync.Mutex
	last      logic.StateSet
	primed    bool
	notifiers []EdgeNotifier
	observers []func([]logic.TriggerState)
}

// New creates an Engine reading from readings and writing to log.
func New(readings store.ReadingStore, log store.TriggerLog, logger *zap.Logger) *Engine {
	return &Engine{
		readings: readings,
		log:      log,
		logger:   logger,
		NewID:    uuid.NewString,
	}
}

// OnEdge registers a notifier called for every detected edge, before the
// evaluation is written to the log.
func (e *Engine) OnEdge(n EdgeNotifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

// OnEvaluate registers a callback invoked with the states of every evaluation
// that had a reading.
func (e *Engine) OnEvaluate(fn func([]logic.TriggerState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Evaluate runs every trigger definition against the latest reading.
// It returns an empty slice when no reading exists. A failed log write is
// logged and does not fail the evaluation; only a failed reading lookup does.
// The last known states advance only when the batch commits, so an edge whose
// batch failed is reported again by the next evaluation that commits.
func (e *Engine) Evaluate(ctx context.Context) ([]logic.TriggerState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	reading, ok, err := e.readings.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest reading: %w", err)
	}
	if !ok {
		return []logic.TriggerState{}, nil
	}

	e.prime(ctx)

	states := logic.Evaluate(reading)
	evalID := e.NewID()
	next := logic.States(states)

	for _, s := range states {
		prev, seen := e.last[s.Name]
		if !seen {
			continue
		}
		kind, changed := logic.Classify(prev, s.Active)
		if !changed {
			continue
		}
		edge := logic.Edge{
			Trigger:      s.Name,
			Kind:         kind,
			Timestamp:    reading.Timestamp,
			EvaluationID: evalID,
		}
		metrics.TriggerEdgesTotal.WithLabelValues(edge.Trigger, string(edge.Kind)).Inc()
		e.logger.Info("trigger edge",
			zap.String("trigger", edge.Trigger),
			zap.String("kind", string(edge.Kind)),
			zap.Time("reading_ts", edge.Timestamp),
			zap.String("evaluation_id", evalID))
		for _, n := range e.notifiers {
			n.NotifyEdge(edge)
		}
	}

	entries := make([]logic.TriggerLogEntry, len(states))
	for i, s := range states {
		entries[i] = logic.TriggerLogEntry{
			Timestamp:    reading.Timestamp,
			Trigger:      s.Name,
			Active:       s.Active,
			EvaluationID: evalID,
		}
	}

	if err := e.log.AppendBatch(ctx, entries); err != nil {
		e.logger.Error("trigger log write failed",
			zap.String("evaluation_id", evalID),
			zap.Error(err))
	} else if e.primed {
		e.last = next
	}

	metrics.TriggerEvaluationsTotal.Inc()
	e.logger.Debug("evaluation complete",
		zap.String("evaluation_id", evalID),
		zap.Duration("elapsed", time.Since(start)))

	for _, fn := range e.observers {
		fn(states)
	}
	return states, nil
}

// prime loads the last logged state per trigger. A failure leaves the engine
// unprimed so the next evaluation retries; edges are not reported meanwhile.
func (e *Engine) prime(ctx context.Context) {
	if e.primed {
		return
	}
	states, err := e.log.LatestStates(ctx)
	if err != nil {
		e.logger.Warn("failed to load trigger states, edge detection deferred", zap.Error(err))
		return
	}
	e.last = states
	e.primed = true
}

// LastStates returns a copy of the last committed trigger states.
func (e *Engine) LastStates() logic.StateSet {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(logic.StateSet, len(e.last))
	for k, v := range e.last {
		out[k] = v
	}
	return out
}
