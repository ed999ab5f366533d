// Package status provides a thread-safe status tracker for the greenhouse-controller daemon.
// It is read by HTTP handlers and by the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	SerialPort  string
	BaudRate    int
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Store       string // "postgres" or "memory"
	Cache       string // redis address, empty when disabled
}

// Counts are running totals since startup.
type Counts struct {
	Readings      int
	ParseFailures int
	Edges         int
	Commands      int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	TransportConnected bool
	LastReading        *logic.Reading
	Triggers           []logic.TriggerState
	Counts             Counts
	StartTime          time.Time
	Now                time.Time
	MQTTConnected      bool
	Network            *NetworkInfo
	Config             Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether the controller is connected and has produced data.
func (s Snapshot) Ready() bool {
	return s.TransportConnected && s.LastReading != nil
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetTransportConnected records whether the serial port is open.
func (t *Tracker) SetTransportConnected(connected bool) {
	t.mu.Lock()
	t.snap.TransportConnected = connected
	t.mu.Unlock()
}

// RecordReading stores the newest ingested reading.
func (t *Tracker) RecordReading(r logic.Reading) {
	t.mu.Lock()
	t.snap.LastReading = &r
	t.snap.Counts.Readings++
	t.mu.Unlock()
}

// RecordParseFailure counts a discarded line.
func (t *Tracker) RecordParseFailure() {
	t.mu.Lock()
	t.snap.Counts.ParseFailures++
	t.mu.Unlock()
}

// NotifyEdge counts a trigger transition. It satisfies engine.EdgeNotifier.
func (t *Tracker) NotifyEdge(logic.Edge) {
	t.mu.Lock()
	t.snap.Counts.Edges++
	t.mu.Unlock()
}

// RecordCommand counts a command written to the controller.
func (t *Tracker) RecordCommand() {
	t.mu.Lock()
	t.snap.Counts.Commands++
	t.mu.Unlock()
}

// SetTriggers replaces the last evaluated trigger states.
func (t *Tracker) SetTriggers(states []logic.TriggerState) {
	cp := append([]logic.TriggerState(nil), states...)
	t.mu.Lock()
	t.snap.Triggers = cp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
