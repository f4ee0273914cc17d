package store

import (
	"context"
	"sync"

	"credon/internal/proofconfig/models"
	"credon/internal/sentinel"
	"credon/pkg/domain"
)

// InMemoryStore keeps proof configs in memory, newest last.
type InMemoryStore struct {
	mu      sync.RWMutex
	byOwner map[domain.Label][]*models.Config
}

// New constructs an empty in-memory proof config store.
func New() *InMemoryStore {
	return &InMemoryStore{byOwner: make(map[domain.Label][]*models.Config)}
}

func (s *InMemoryStore) Append(_ context.Context, cfg *models.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.byOwner[cfg.OwnerLabel] = append(s.byOwner[cfg.OwnerLabel], &cp)
	return nil
}

func (s *InMemoryStore) Current(_ context.Context, owner domain.Label) (*models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := s.byOwner[owner]
	if len(configs) == 0 {
		return nil, sentinel.ErrNotFound
	}
	cp := *configs[len(configs)-1]
	return &cp, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner domain.Label) ([]*models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := s.byOwner[owner]
	out := make([]*models.Config, 0, len(configs))
	for _, cfg := range configs {
		cp := *cfg
		out = append(out, &cp)
	}
	return out, nil
}
