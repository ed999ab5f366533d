// Package logic contains pure business logic for greenhouse telemetry and control.
// This package has NO external dependencies (no serial, MQTT, database, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Reading is one timestamped snapshot of all sensor channels.
// Readings are immutable once stored.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	TempF     float64   `json:"temp_f"`
	FanSignal float64   `json:"fan_signal"`
	MoistureA float64   `json:"moisture_a"`
	MoistureB float64   `json:"moisture_b"`
	Humidity  float64   `json:"humidity"`
}

// EdgeKind classifies a trigger transition between consecutive evaluations.
type EdgeKind string

const (
	EdgeStart EdgeKind = "start" // false -> true
	EdgeStop  EdgeKind = "stop"  // true -> false
)

// Edge is a detected transition of one trigger.
type Edge struct {
	Trigger      string
	Kind         EdgeKind
	Timestamp    time.Time // timestamp of the reading that caused the transition
	EvaluationID string
}

// TriggerLogEntry is one row of the trigger audit log.
// Every evaluation writes one entry per trigger definition, changed or not.
type TriggerLogEntry struct {
	Timestamp    time.Time
	Trigger      string
	Active       bool
	EvaluationID string
}

// TriggerState is the evaluated state of one trigger.
type TriggerState struct {
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

// StateSet maps trigger names to their active flag.
type StateSet map[string]bool

// States converts an evaluation result into a StateSet.
func States(states []TriggerState) StateSet {
	set := make(StateSet, len(states))
	for _, s := range states {
		set[s.Name] = s.Active
	}
	return set
}

// AnyActive reports whether at least one trigger is active.
func (s StateSet) AnyActive() bool {
	for _, active := range s {
		if active {
			return true
		}
	}
	return false
}

// Classify returns the edge kind for a transition from prev to next.
// ok is false when the value did not change.
func Classify(prev, next bool) (kind EdgeKind, ok bool) {
	switch {
	case !prev && next:
		return EdgeStart, true
	case prev && !next:
		return EdgeStop, true
	}
	return "", false
}
