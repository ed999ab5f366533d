// Package history serves minute-bucketed views of readings and trigger states.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

// ErrRange is wrapped by every rejected history window.
var ErrRange = errors.New("invalid history range")

// boundLayouts are accepted for start and end, tried in order.
// Layouts without a zone are read as UTC.
var boundLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseBound parses one window bound.
func ParseBound(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrRange, name)
	}
	for _, layout := range boundLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %s %q", ErrRange, name, value)
}

// ParseRange parses start and end and checks start <= end.
func ParseRange(start, end string) (time.Time, time.Time, error) {
	s, err := ParseBound("start", start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseBound("end", end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s before start %s", ErrRange, e.Format(time.RFC3339), s.Format(time.RFC3339))
	}
	return s, e, nil
}

// Result is an aggregated history window. Series and Triggers share minute
// keys but either may have minutes the other lacks.
type Result struct {
	Start    time.Time            `json:"start"`
	End      time.Time            `json:"end"`
	Series   []logic.Bucket       `json:"sensor_data"`
	Triggers logic.TriggerSummary `json:"triggers"`
}

// Aggregator reads both stores and buckets them by minute.
type Aggregator struct {
	readings store.ReadingStore
	log      store.TriggerLog
}

func NewAggregator(readings store.ReadingStore, log store.TriggerLog) *Aggregator {
	return &Aggregator{readings: readings, log: log}
}

// Aggregate returns the bucketed window [start, end].
// Readings whose channels were stored as NULL contribute 0 to the mean.
func (a *Aggregator) Aggregate(ctx context.Context, start, end time.Time) (Result, error) {
	if end.Before(start) {
		return Result{}, fmt.Errorf("%w: end before start", ErrRange)
	}

	readings, err := a.readings.Range(ctx, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("read readings: %w", err)
	}
	entries, err := a.log.RangeEntries(ctx, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("read trigger log: %w", err)
	}

	series := logic.BucketReadings(readings)
	summary := logic.SummarizeTriggers(entries)
	for i := range series {
		if states, ok := summary[series[i].MinuteStart]; ok {
			series[i].TriggerStates = states
		}
	}

	return Result{
		Start:    start,
		End:      end,
		Series:   series,
		Triggers: summary,
	}, nil
}
