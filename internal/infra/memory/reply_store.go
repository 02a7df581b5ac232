package memory

import (
	"context"
	"sync"
	"time"

	"linkletter-service/internal/domain"
)

// ReplyStore is an in-memory reply repository (useful for tests/demos).
// Replies are append-only and listed in creation order.
type ReplyStore struct {
	mu      sync.RWMutex
	nextID  int64
	replies map[string][]domain.Reply
	clock   func() time.Time
}

func NewReplyStore() *ReplyStore {
	return &ReplyStore{
		nextID:  1,
		replies: make(map[string][]domain.Reply),
		clock:   time.Now,
	}
}

func (s *ReplyStore) CreateReply(_ context.Context, letterID, content string, author domain.Identity, isPrivate bool) (domain.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply := domain.Reply{
		ID:        s.nextID,
		LetterID:  letterID,
		Content:   content,
		Author:    author,
		IsPrivate: isPrivate,
		CreatedAt: s.clock(),
	}
	s.nextID++
	s.replies[letterID] = append(s.replies[letterID], reply)
	return reply, nil
}

func (s *ReplyStore) ListReplies(_ context.Context, letterID string) ([]domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Reply, len(s.replies[letterID]))
	copy(out, s.replies[letterID])
	return out, nil
}
