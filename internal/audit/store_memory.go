package audit

import (
	"context"
	"sync"

	"credon/pkg/domain"
)

// InMemoryStore keeps audit events in memory, in arrival order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore constructs an empty in-memory audit store.
func NewMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByLabel(_ context.Context, label domain.Label) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, event := range s.events {
		if event.Label == label {
			out = append(out, event)
		}
	}
	return out, nil
}
