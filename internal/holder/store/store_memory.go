package store

import (
	"context"
	"sync"
	"time"

	"credon/internal/holder/models"
	"credon/internal/sentinel"
	"credon/pkg/domain"
)

// InMemoryStore keeps holder records in memory, for tests and single-node runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	byLabel map[domain.Label]*models.Record
}

// New constructs an empty in-memory holder store.
func New() *InMemoryStore {
	return &InMemoryStore{byLabel: make(map[domain.Label]*models.Record)}
}

func (s *InMemoryStore) Save(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byLabel[rec.Label]; ok {
		return sentinel.ErrConflict
	}
	if rec.ContactID != "" && rec.Status.Active() {
		for _, existing := range s.byLabel {
			if existing.ContactID == rec.ContactID && existing.Status.Active() {
				return sentinel.ErrConflict
			}
		}
	}
	s.byLabel[rec.Label] = rec.Clone()
	return nil
}

func (s *InMemoryStore) FindByLabel(_ context.Context, label domain.Label) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byLabel[label]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) FindByContactID(_ context.Context, contactID domain.ContactID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Prefer the active record when several share a contact; otherwise the
	// most recently updated one.
	var best *models.Record
	for _, rec := range s.byLabel {
		if rec.ContactID != contactID {
			continue
		}
		if rec.Status.Active() {
			return rec.Clone(), nil
		}
		if best == nil || rec.UpdatedAt.After(best.UpdatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best.Clone(), nil
}

func (s *InMemoryStore) FindByConnectionID(_ context.Context, connectionID domain.ConnectionID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byLabel {
		if rec.ConnectionID == connectionID {
			return rec.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.byLabel))
	for _, rec := range s.byLabel {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byLabel[rec.Label]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.ContactID != "" && rec.Status.Active() {
		for label, other := range s.byLabel {
			if label != rec.Label && other.ContactID == rec.ContactID && other.Status.Active() {
				return sentinel.ErrConflict
			}
		}
	}
	cp := rec.Clone()
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	s.byLabel[rec.Label] = cp
	*rec = *cp
	return nil
}

func (s *InMemoryStore) UpdateStatusIf(_ context.Context, label domain.Label, expect, next models.Status) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byLabel[label]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.Status != expect {
		return nil, sentinel.ErrConflict
	}
	if rec.ContactID != "" && next.Active() {
		for other, existing := range s.byLabel {
			if other != label && existing.ContactID == rec.ContactID && existing.Status.Active() {
				return nil, sentinel.ErrConflict
			}
		}
	}
	rec.Status = next
	rec.UpdatedAt = time.Now()
	return rec.Clone(), nil
}
