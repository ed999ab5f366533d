// Package store persists sensor readings and the trigger audit log.
// Both are append-only and range-queryable by timestamp.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// ErrPersistence is wrapped by every failed write.
var ErrPersistence = errors.New("persistence")

// ReadingStore is an append-only, timestamp-ordered log of readings.
// Implementations must be safe for concurrent appends and reads.
type ReadingStore interface {
	// Append stores a reading.
	Append(ctx context.Context, r logic.Reading) error

	// Latest returns the reading with the greatest timestamp. ok is false when empty.
	Latest(ctx context.Context) (r logic.Reading, ok bool, err error)

	// Range returns readings with start <= timestamp <= end in ascending order.
	Range(ctx context.Context, start, end time.Time) ([]logic.Reading, error)
}

// TriggerLog is the append-only trigger evaluation log.
type TriggerLog interface {
	// AppendBatch writes all entries of one evaluation, or none of them.
	AppendBatch(ctx context.Context, entries []logic.TriggerLogEntry) error

	// LatestStates returns, per trigger, the active value of its most recent entry.
	LatestStates(ctx context.Context) (logic.StateSet, error)

	// RangeEntries returns entries with start <= timestamp <= end in ascending order.
	RangeEntries(ctx context.Context, start, end time.Time) ([]logic.TriggerLogEntry, error)
}
