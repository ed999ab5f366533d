package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

const (
	// BufferCapacity is the number of messages held while the broker is unreachable.
	BufferCapacity = 500

	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed, oldest first, on reconnect.
type RealPublisher struct {
	client paho.Client
	logger *zap.Logger

	mu            sync.Mutex
	out           *outbox
	connectedOnce bool
}

// NewRealPublisher creates a publisher for the given broker. It connects in the
// background and keeps retrying, so a missing broker never blocks startup.
func NewRealPublisher(broker string, logger *zap.Logger) *RealPublisher {
	p := &RealPublisher{
		logger: logger,
		out:    newOutbox(BufferCapacity),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("greenhouse-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(client paho.Client, logger *zap.Logger) *RealPublisher {
	return &RealPublisher{
		client: client,
		logger: logger,
		out:    newOutbox(BufferCapacity),
	}
}

// onConnect replays buffered messages. New publishes wait on mu, so replayed
// messages stay ahead of them.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, dropped := p.out.drain()
	if p.connectedOnce {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		pending = append(pending, outboxMsg{topic: TopicSystem, payload: payload, qos: 1})
	}
	p.connectedOnce = true

	p.logger.Info("mqtt connected", zap.Int("replaying", len(pending)), zap.Int("dropped", dropped))
	for _, m := range pending {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		if p.out.add(outboxMsg{topic: topic, payload: payload, qos: qos, retained: retained}) && p.out.dropped == 1 {
			p.logger.Warn("mqtt outbox full, evicting oldest readings", zap.Int("capacity", BufferCapacity))
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishReading sends a reading at QoS 0.
func (p *RealPublisher) PublishReading(r logic.Reading) error {
	payload, err := FormatReadingPayload(r)
	if err != nil {
		return fmt.Errorf("format reading payload: %w", err)
	}
	return p.publish(TopicReadings, 0, false, payload)
}

// PublishEdge sends a trigger edge at QoS 1.
func (p *RealPublisher) PublishEdge(e logic.Edge) error {
	payload, err := FormatEdgePayload(e)
	if err != nil {
		return fmt.Errorf("format edge payload: %w", err)
	}
	return p.publish(TopicEdges, 1, false, payload)
}

// PublishSystem sends a system lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
