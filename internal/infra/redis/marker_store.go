package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// MarkerStore keeps like idempotence markers in Redis:
// SET letter:{letterID}:liked:{viewerID} on like, DEL on unlike.
// The marker substitutes for a server-side unique constraint on
// (letter, viewer) that the counter columns do not enforce.
type MarkerStore struct {
	client *redis.Client
}

func NewMarkerStore(client *redis.Client) *MarkerStore {
	return &MarkerStore{client: client}
}

func (s *MarkerStore) HasLiked(ctx context.Context, letterID, viewerID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(letterID, viewerID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MarkerStore) SetLiked(ctx context.Context, letterID, viewerID string, liked bool) error {
	if liked {
		return s.client.Set(ctx, s.key(letterID, viewerID), "1", 0).Err()
	}
	return s.client.Del(ctx, s.key(letterID, viewerID)).Err()
}

func (s *MarkerStore) key(letterID, viewerID string) string {
	return "letter:" + letterID + ":liked:" + viewerID
}
