// Package mqtt publishes readings, trigger edges and system events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
)

// Topics.
const (
	TopicReadings = "greenhouse/sensor/readings"
	TopicEdges    = "greenhouse/triggers/edges"
	TopicSystem   = "greenhouse/system"
)

// Publisher publishes greenhouse messages.
// Publish errors are reported to the caller and must not crash the process.
type Publisher interface {
	// PublishReading sends one stored reading.
	PublishReading(r logic.Reading) error

	// PublishEdge sends one trigger transition.
	PublishEdge(e logic.Edge) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReadingPayload is the message body on TopicReadings.
type ReadingPayload struct {
	Reading ReadingInner `json:"reading"`
}

// ReadingInner contains the reading fields.
type ReadingInner struct {
	Timestamp string  `json:"timestamp"`
	TempF     float64 `json:"temp_f"`
	FanSignal float64 `json:"fan_signal"`
	MoistureA float64 `json:"moisture_a"`
	MoistureB float64 `json:"moisture_b"`
	Humidity  float64 `json:"humidity"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(r logic.Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		Reading: ReadingInner{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
			TempF:     r.TempF,
			FanSignal: r.FanSignal,
			MoistureA: r.MoistureA,
			MoistureB: r.MoistureB,
			Humidity:  r.Humidity,
		},
	})
}

// EdgePayload is the message body on TopicEdges.
type EdgePayload struct {
	Edge EdgeInner `json:"edge"`
}

// EdgeInner contains the edge details.
type EdgeInner struct {
	Trigger      string `json:"trigger"`
	Kind         string `json:"kind"`
	Timestamp    string `json:"timestamp"`
	EvaluationID string `json:"evaluation_id"`
}

// FormatEdgePayload creates the JSON payload for a trigger edge.
func FormatEdgePayload(e logic.Edge) ([]byte, error) {
	return json.Marshal(EdgePayload{
		Edge: EdgeInner{
			Trigger:      e.Trigger,
			Kind:         string(e.Kind),
			Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
			EvaluationID: e.EvaluationID,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// EdgeQueueSize is how many edges an EdgeForwarder holds while a publish is in flight.
const EdgeQueueSize = 64

// EdgeForwarder publishes edges from its own goroutine, in notification order.
// NotifyEdge never waits on the broker; when the queue is full the edge is
// dropped and counted.
type EdgeForwarder struct {
	publisher Publisher
	logger    *zap.Logger
	queue     chan logic.Edge
	done      chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewEdgeForwarder(publisher Publisher, logger *zap.Logger) *EdgeForwarder {
	f := &EdgeForwarder{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan logic.Edge, EdgeQueueSize),
		done:      make(chan struct{}),
	}
	go f.run()
	return f
}

// NotifyEdge satisfies engine.EdgeNotifier.
func (f *EdgeForwarder) NotifyEdge(e logic.Edge) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		f.logger.Warn("edge forwarder closed, dropping edge", zap.String("trigger", e.Trigger))
		return
	}
	select {
	case f.queue <- e:
	default:
		metrics.EdgesDroppedTotal.Inc()
		f.logger.Warn("edge queue full, dropping edge",
			zap.String("trigger", e.Trigger),
			zap.String("kind", string(e.Kind)))
	}
}

func (f *EdgeForwarder) run() {
	defer close(f.done)
	for e := range f.queue {
		if err := f.publisher.PublishEdge(e); err != nil {
			f.logger.Warn("edge publish failed",
				zap.String("trigger", e.Trigger),
				zap.String("kind", string(e.Kind)),
				zap.Error(err))
		}
	}
}

// Close stops accepting edges and waits until the queued ones are published.
func (f *EdgeForwarder) Close() error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	<-f.done
	return nil
}
