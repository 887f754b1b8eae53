package session

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*memoryStore)(nil)

// memoryStore is an in-process Store for local development and tests.
// Sessions vanish on restart, which is fine for both.
type memoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

// NewMemoryStore returns an in-memory session Store.
func NewMemoryStore() Store {
	return &memoryStore{recs: make(map[string]Record)}
}

func (s *memoryStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[token] = rec
	return nil
}

func (s *memoryStore) Get(ctx context.Context, token string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[token]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, token)
	return nil
}
