// memory.go — In-memory registry store for tests and ephemeral runs.
package registry

import (
	"context"
	"sync"
)

// MemoryStore implements Store on a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	reviews string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, wallet string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[wallet]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) Create(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.Wallet]; ok {
		return ErrAlreadyExists
	}
	s.entries[e.Wallet] = e
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Wallet] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[wallet]; !ok {
		return ErrNotFound
	}
	delete(s.entries, wallet)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) (map[string]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) ReviewsHandle(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reviews, nil
}

func (s *MemoryStore) SetReviewsHandle(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reviews != "" {
		return ErrReviewsAlreadySet
	}
	s.reviews = handle
	return nil
}
