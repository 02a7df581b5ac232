package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"linkletter-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LetterLoader loads letter JSONB from Postgres. Counters live in their own
// columns so they can be mutated with delta increments.
type LetterLoader struct {
	pool *pgxpool.Pool
}

func NewLetterLoader(pool *pgxpool.Pool) *LetterLoader {
	return &LetterLoader{pool: pool}
}

func (l *LetterLoader) LoadLetter(ctx context.Context, letterID string) (domain.Letter, error) {
	var (
		raw       []byte
		viewCount int64
		likeCount int64
	)
	err := l.pool.QueryRow(ctx,
		`SELECT data, view_count, like_count FROM letters WHERE id=$1`, letterID,
	).Scan(&raw, &viewCount, &likeCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Letter{}, domain.ErrLetterNotFound
	}
	if err != nil {
		return domain.Letter{}, fmt.Errorf("load letter: %w", err)
	}

	var letter domain.Letter
	if err := json.Unmarshal(raw, &letter); err != nil {
		return domain.Letter{}, fmt.Errorf("unmarshal letter: %w", err)
	}
	letter.ID = letterID
	letter.ViewCount = viewCount
	letter.LikeCount = likeCount
	return letter, nil
}
