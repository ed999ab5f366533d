package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// Memory is an in-process ReadingStore and TriggerLog.
// Rows are kept sorted by timestamp; rows with equal timestamps keep arrival order.
type Memory struct {
	mu       sync.RWMutex
	readings []logic.Reading
	entries  []logic.TriggerLogEntry
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

var (
	_ ReadingStore = (*Memory)(nil)
	_ TriggerLog   = (*Memory)(nil)
)

// Append stores a reading, keeping timestamp order if the clock stepped backwards.
func (m *Memory) Append(_ context.Context, r logic.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.readings), func(i int) bool {
		return m.readings[i].Timestamp.After(r.Timestamp)
	})
	m.readings = append(m.readings, logic.Reading{})
	copy(m.readings[i+1:], m.readings[i:])
	m.readings[i] = r
	return nil
}

// Latest returns the reading with the greatest timestamp.
func (m *Memory) Latest(_ context.Context) (logic.Reading, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.readings) == 0 {
		return logic.Reading{}, false, nil
	}
	return m.readings[len(m.readings)-1], true, nil
}

// Range returns readings within [start, end].
func (m *Memory) Range(_ context.Context, start, end time.Time) ([]logic.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo := sort.Search(len(m.readings), func(i int) bool {
		return !m.readings[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(m.readings), func(i int) bool {
		return m.readings[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil, nil
	}
	out := make([]logic.Reading, hi-lo)
	copy(out, m.readings[lo:hi])
	return out, nil
}

// AppendBatch stores all entries atomically with respect to readers.
func (m *Memory) AppendBatch(_ context.Context, entries []logic.TriggerLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		i := sort.Search(len(m.entries), func(i int) bool {
			return m.entries[i].Timestamp.After(e.Timestamp)
		})
		m.entries = append(m.entries, logic.TriggerLogEntry{})
		copy(m.entries[i+1:], m.entries[i:])
		m.entries[i] = e
	}
	return nil
}

// LatestStates scans the log from newest to oldest.
func (m *Memory) LatestStates(_ context.Context) (logic.StateSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(logic.StateSet)
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if _, ok := states[e.Trigger]; !ok {
			states[e.Trigger] = e.Active
		}
	}
	return states, nil
}

// RangeEntries returns trigger log entries within [start, end].
func (m *Memory) RangeEntries(_ context.Context, start, end time.Time) ([]logic.TriggerLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo := sort.Search(len(m.entries), func(i int) bool {
		return !m.entries[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil, nil
	}
	out := make([]logic.TriggerLogEntry, hi-lo)
	copy(out, m.entries[lo:hi])
	return out, nil
}
