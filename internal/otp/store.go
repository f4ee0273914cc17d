package otp

import (
	"context"
	"sync"
	"time"

	"credon/pkg/domain"
)

// Store holds hashed one-time codes keyed by contact, expiring after a TTL.
// Consume is destructive: a code can be read out exactly once.
type Store interface {
	Put(ctx context.Context, contactID domain.ContactID, hash []byte, ttl time.Duration) error
	Consume(ctx context.Context, contactID domain.ContactID) ([]byte, error)
}

type memoryEntry struct {
	hash      []byte
	expiresAt time.Time
}

// InMemoryStore keeps codes in a TTL map, for tests and single-node runs.
// Expired entries are dropped lazily on access and by Purge.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[domain.ContactID]memoryEntry
	now     func() time.Time
}

// NewMemory constructs an empty in-memory OTP store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[domain.ContactID]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Put(_ context.Context, contactID domain.ContactID, hash []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[contactID] = memoryEntry{hash: hash, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, contactID domain.ContactID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[contactID]
	if !ok {
		return nil, ErrNoCode
	}
	delete(s.entries, contactID)
	if s.now().After(entry.expiresAt) {
		return nil, ErrNoCode
	}
	return entry.hash, nil
}

// Purge removes expired entries. Called by the cleanup worker.
func (s *InMemoryStore) Purge(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
