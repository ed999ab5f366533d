package mqtt

import "github.com/sweeney/greenhouse-controller/internal/logic"

// NopPublisher discards every message. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReading(logic.Reading) error { return nil }

func (NopPublisher) PublishEdge(logic.Edge) error { return nil }

func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
