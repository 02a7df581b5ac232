package memory

import (
	"context"
	"sync"
)

// CounterStore tracks view/like counters in process memory. Mutations are
// delta increments, matching the store-backed implementations.
type CounterStore struct {
	mu    sync.Mutex
	views map[string]int64
	likes map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{
		views: make(map[string]int64),
		likes: make(map[string]int64),
	}
}

func (s *CounterStore) IncrementViewCount(_ context.Context, letterID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[letterID] += delta
	return nil
}

func (s *CounterStore) IncrementLikeCount(_ context.Context, letterID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[letterID] += delta
	return nil
}

// ViewCount returns the accumulated view delta for a letter.
func (s *CounterStore) ViewCount(letterID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[letterID]
}

// LikeCount returns the accumulated like delta for a letter.
func (s *CounterStore) LikeCount(letterID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[letterID]
}
