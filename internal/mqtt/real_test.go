package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	sent         []sent
	err          error
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte))})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, s := range c.sent {
		out[i] = s.topic
	}
	return out
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisher(client, zap.NewNop())

	if err := p.PublishReading(logic.Reading{TempF: 70}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(client.sent))
	}
	if client.sent[0].topic != TopicReadings || client.sent[0].qos != 0 || client.sent[0].retained {
		t.Errorf("unexpected reading message: %+v", client.sent[0])
	}
	if client.sent[1].topic != TopicSystem || client.sent[1].qos != 1 || !client.sent[1].retained {
		t.Errorf("unexpected system message: %+v", client.sent[1])
	}
}

func TestRealPublisherBuffersAndReplaysInOrder(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, zap.NewNop())

	p.PublishReading(logic.Reading{TempF: 70})
	p.PublishEdge(logic.Edge{Trigger: logic.TriggerFanStatus, Kind: logic.EdgeStart})
	p.PublishReading(logic.Reading{TempF: 71})

	if len(client.sent) != 0 {
		t.Fatalf("expected nothing sent while disconnected, got %d", len(client.sent))
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}

	client.setOpen(true)
	p.onConnect()

	want := []string{TopicReadings, TopicEdges, TopicReadings}
	got := client.topics()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if p.Buffered() != 0 {
		t.Errorf("expected empty buffer after replay, got %d", p.Buffered())
	}
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisher(client, zap.NewNop())

	p.onConnect()
	if len(client.sent) != 0 {
		t.Fatalf("first connect should not announce a reconnect, got %d messages", len(client.sent))
	}

	p.onConnect()
	if len(client.sent) != 1 || client.sent[0].topic != TopicSystem {
		t.Fatalf("expected RECONNECTED on system topic, got %+v", client.sent)
	}
}

func TestRealPublisherBufferOverflowKeepsNewest(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, zap.NewNop())

	for i := 0; i < BufferCapacity+10; i++ {
		p.PublishReading(logic.Reading{TempF: float64(i)})
	}
	if p.Buffered() != BufferCapacity {
		t.Errorf("expected buffer capped at %d, got %d", BufferCapacity, p.Buffered())
	}
}

func TestRealPublisherOverflowKeepsEdges(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, zap.NewNop())

	p.PublishEdge(logic.Edge{Trigger: logic.TriggerTemperatureCooldown, Kind: logic.EdgeStart})
	for i := 0; i < BufferCapacity+10; i++ {
		p.PublishReading(logic.Reading{TempF: float64(i)})
	}

	client.setOpen(true)
	p.onConnect()

	got := client.topics()
	if len(got) != BufferCapacity {
		t.Fatalf("expected %d messages replayed, got %d", BufferCapacity, len(got))
	}
	if got[0] != TopicEdges {
		t.Errorf("expected the edge to survive overflow, first message on %s", got[0])
	}
}

func TestRealPublisherError(t *testing.T) {
	client := &fakeClient{open: true, err: errors.New("not authorized")}
	p := newPublisher(client, zap.NewNop())

	if err := p.PublishEdge(logic.Edge{}); err == nil {
		t.Error("expected publish error")
	}
}

func TestRealPublisherClose(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, zap.NewNop())

	p.Close()
	if !client.disconnected {
		t.Error("expected Disconnect on Close")
	}
	if p.IsConnected() {
		t.Error("expected disconnected")
	}
}
