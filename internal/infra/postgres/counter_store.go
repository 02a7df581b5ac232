package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// CounterStore mutates letter counters with delta increments. Many viewer
// sessions write concurrently; add-N updates avoid lost updates without
// locking or transactions.
type CounterStore struct {
	pool *pgxpool.Pool
}

func NewCounterStore(pool *pgxpool.Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

func (s *CounterStore) IncrementViewCount(ctx context.Context, letterID string, delta int64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE letters SET view_count = view_count + $2 WHERE id=$1`, letterID, delta); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

func (s *CounterStore) IncrementLikeCount(ctx context.Context, letterID string, delta int64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE letters SET like_count = like_count + $2 WHERE id=$1`, letterID, delta); err != nil {
		return fmt.Errorf("increment like count: %w", err)
	}
	return nil
}
