package events

import (
	"context"
	"sync"
)

// InMemoryLog keeps the full event history in memory, in emission order.
type InMemoryLog struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryLog constructs an empty event log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{}
}

// Append records an event at the end of the log.
func (s *InMemoryLog) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns a copy of the full event history.
func (s *InMemoryLog) List(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...), nil
}

var _ Log = (*InMemoryLog)(nil)
