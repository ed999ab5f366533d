package mqtt

// outboxMsg is a serialized message waiting for the broker.
type outboxMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable, oldest first.
// When full it evicts the oldest reading, and only falls back to the oldest
// message of any kind when no reading is queued. A retained message replaces an
// earlier retained message on the same topic, since the broker keeps only one.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	msgs     []outboxMsg
	capacity int
	dropped  int // evictions since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]outboxMsg, 0, capacity),
		capacity: capacity,
	}
}

// add queues m and reports whether another message was evicted for it.
func (o *outbox) add(m outboxMsg) (evicted bool) {
	if m.retained {
		for i, q := range o.msgs {
			if q.retained && q.topic == m.topic {
				o.remove(i)
				break
			}
		}
	}
	if len(o.msgs) >= o.capacity {
		o.remove(o.victim())
		o.dropped++
		evicted = true
	}
	o.msgs = append(o.msgs, m)
	return evicted
}

func (o *outbox) victim() int {
	for i, q := range o.msgs {
		if q.topic == TopicReadings {
			return i
		}
	}
	return 0
}

func (o *outbox) remove(i int) {
	o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
}

// drain empties the outbox and returns its messages with the eviction count.
func (o *outbox) drain() (msgs []outboxMsg, dropped int) {
	dropped = o.dropped
	o.dropped = 0
	if len(o.msgs) == 0 {
		return nil, dropped
	}
	msgs = o.msgs
	o.msgs = make([]outboxMsg, 0, o.capacity)
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
