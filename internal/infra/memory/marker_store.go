package memory

import (
	"context"
	"sync"
)

// MarkerStore keeps like idempotence markers in process memory, keyed by
// (letter, viewer).
type MarkerStore struct {
	mu     sync.RWMutex
	marked map[string]struct{}
}

func NewMarkerStore() *MarkerStore {
	return &MarkerStore{marked: make(map[string]struct{})}
}

func (s *MarkerStore) HasLiked(_ context.Context, letterID, viewerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.marked[markerKey(letterID, viewerID)]
	return ok, nil
}

func (s *MarkerStore) SetLiked(_ context.Context, letterID, viewerID string, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if liked {
		s.marked[markerKey(letterID, viewerID)] = struct{}{}
	} else {
		delete(s.marked, markerKey(letterID, viewerID))
	}
	return nil
}

func markerKey(letterID, viewerID string) string {
	return letterID + ":" + viewerID
}
