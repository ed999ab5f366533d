package mqtt

import (
	"testing"
)

func reading(n byte) outboxMsg {
	return outboxMsg{topic: TopicReadings, payload: []byte{n}}
}

func edge(n byte) outboxMsg {
	return outboxMsg{topic: TopicEdges, payload: []byte{n}, qos: 1}
}

func payloads(msgs []outboxMsg) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10)
	got, dropped := o.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nothing from empty drain, got %d items, %d dropped", len(got), dropped)
	}
}

func TestOutboxKeepsArrivalOrder(t *testing.T) {
	o := newOutbox(10)
	o.add(reading(0))
	o.add(edge(1))
	o.add(reading(2))

	if o.len() != 3 {
		t.Fatalf("expected len 3, got %d", o.len())
	}
	got, _ := o.drain()
	if string(payloads(got)) != string([]byte{0, 1, 2}) {
		t.Errorf("expected arrival order, got %v", payloads(got))
	}
	if o.len() != 0 {
		t.Errorf("expected empty outbox after drain, got %d", o.len())
	}
}

func TestOutboxEvictsReadingsFirst(t *testing.T) {
	o := newOutbox(3)
	o.add(reading(0))
	o.add(edge(1))
	o.add(reading(2))

	if !o.add(edge(3)) {
		t.Fatal("expected an eviction at capacity")
	}
	if !o.add(reading(4)) {
		t.Fatal("expected an eviction at capacity")
	}

	got, dropped := o.drain()
	if want := []byte{1, 3, 4}; string(payloads(got)) != string(want) {
		t.Errorf("expected %v, got %v", want, payloads(got))
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
}

func TestOutboxEvictsOldestWithoutReadings(t *testing.T) {
	o := newOutbox(2)
	o.add(edge(0))
	o.add(edge(1))
	o.add(edge(2))

	got, _ := o.drain()
	if want := []byte{1, 2}; string(payloads(got)) != string(want) {
		t.Errorf("expected %v, got %v", want, payloads(got))
	}
}

func TestOutboxRetainedReplacesEarlierOnTopic(t *testing.T) {
	o := newOutbox(10)
	o.add(outboxMsg{topic: TopicSystem, payload: []byte{0}, qos: 1, retained: true})
	o.add(reading(1))
	o.add(outboxMsg{topic: TopicSystem, payload: []byte{2}, qos: 1})
	o.add(outboxMsg{topic: TopicSystem, payload: []byte{3}, qos: 1, retained: true})

	got, dropped := o.drain()
	if want := []byte{1, 2, 3}; string(payloads(got)) != string(want) {
		t.Errorf("expected %v, got %v", want, payloads(got))
	}
	if dropped != 0 {
		t.Errorf("replacing a retained message is not a drop, got %d", dropped)
	}
	if !got[2].retained || got[2].qos != 1 || got[2].topic != TopicSystem {
		t.Errorf("fields not preserved: %+v", got[2])
	}
}

func TestOutboxDropCountResetsOnDrain(t *testing.T) {
	o := newOutbox(1)
	o.add(reading(0))
	o.add(reading(1))
	if _, dropped := o.drain(); dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}

	o.add(reading(2))
	got, dropped := o.drain()
	if dropped != 0 || len(got) != 1 || got[0].payload[0] != 2 {
		t.Errorf("expected a clean cycle after drain, got %v, %d dropped", payloads(got), dropped)
	}
}
