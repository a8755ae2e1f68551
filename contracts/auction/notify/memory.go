package notify

import (
	"context"
	"sync"
)

// Memory is a publisher that keeps the events in memory.
//
// - implements notify.Publisher
type Memory struct {
	sync.Mutex

	events []Event
}

// NewMemory returns an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish implements notify.Publisher.
func (m *Memory) Publish(ctx context.Context, e Event) error {
	m.Lock()
	m.events = append(m.events, e)
	m.Unlock()

	return nil
}

// Events returns a copy of the events published so far, in order.
func (m *Memory) Events() []Event {
	m.Lock()
	defer m.Unlock()

	events := make([]Event, len(m.events))
	copy(events, m.events)

	return events
}

// Kinds returns the kinds of the events published so far, in order.
func (m *Memory) Kinds() []Kind {
	events := m.Events()

	kinds := make([]Kind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}

	return kinds
}
