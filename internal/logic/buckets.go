package logic

import (
	"sort"
	"time"
)

// Bucket is the per-minute mean of every sensor channel.
// Buckets are derived on demand and never stored.
type Bucket struct {
	MinuteStart   time.Time       `json:"minute_start"`
	TempF         float64         `json:"temp_f"`
	FanSignal     float64         `json:"fan_signal"`
	MoistureA     float64         `json:"moisture_a"`
	MoistureB     float64         `json:"moisture_b"`
	Humidity      float64         `json:"humidity"`
	ReadingCount  int             `json:"reading_count"`
	TriggerStates map[string]bool `json:"trigger_states,omitempty"`
}

// TriggerSummary maps a minute key to the last active value seen per trigger in that minute.
type TriggerSummary map[time.Time]map[string]bool

// MinuteKey floors t to the start of its minute in UTC.
func MinuteKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

type bucketSum struct {
	tempF, fan, moistA, moistB, humidity float64
	n                                    int
}

// BucketReadings groups readings by minute and averages every channel.
// A channel that was absent when the reading was stored arrives here as 0 and
// is averaged as 0; it is not excluded from the mean.
// Minutes with no readings are omitted. Buckets are returned in ascending order.
func BucketReadings(readings []Reading) []Bucket {
	sums := make(map[time.Time]*bucketSum)
	for _, r := range readings {
		key := MinuteKey(r.Timestamp)
		s, ok := sums[key]
		if !ok {
			s = &bucketSum{}
			sums[key] = s
		}
		s.tempF += r.TempF
		s.fan += r.FanSignal
		s.moistA += r.MoistureA
		s.moistB += r.MoistureB
		s.humidity += r.Humidity
		s.n++
	}

	buckets := make([]Bucket, 0, len(sums))
	for key, s := range sums {
		n := float64(s.n)
		buckets = append(buckets, Bucket{
			MinuteStart:  key,
			TempF:        s.tempF / n,
			FanSignal:    s.fan / n,
			MoistureA:    s.moistA / n,
			MoistureB:    s.moistB / n,
			Humidity:     s.humidity / n,
			ReadingCount: s.n,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].MinuteStart.Before(buckets[j].MinuteStart)
	})
	return buckets
}

// SummarizeTriggers groups log entries by minute and keeps, per trigger, the
// active value of the entry with the highest timestamp. Entries with equal
// timestamps resolve to the one that appears later in the input.
func SummarizeTriggers(entries []TriggerLogEntry) TriggerSummary {
	summary := make(TriggerSummary)
	seen := make(map[time.Time]map[string]time.Time)
	for _, e := range entries {
		key := MinuteKey(e.Timestamp)
		states, ok := summary[key]
		if !ok {
			states = make(map[string]bool)
			summary[key] = states
			seen[key] = make(map[string]time.Time)
		}
		if last, ok := seen[key][e.Trigger]; ok && e.Timestamp.Before(last) {
			continue
		}
		states[e.Trigger] = e.Active
		seen[key][e.Trigger] = e.Timestamp
	}
	return summary
}

// Keys returns the summary's minute keys in ascending order.
func (s TriggerSummary) Keys() []time.Time {
	keys := make([]time.Time, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
