package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"linkletter-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ReplyRepository persists replies in Postgres. Listing always returns the
// full reply set for the letter in ascending creation order; the visibility
// policy filters at read time in the application layer.
type ReplyRepository struct {
	pool *pgxpool.Pool
}

func NewReplyRepository(pool *pgxpool.Pool) *ReplyRepository {
	return &ReplyRepository{pool: pool}
}

func (r *ReplyRepository) CreateReply(ctx context.Context, letterID, content string, author domain.Identity, isPrivate bool) (domain.Reply, error) {
	authorJSON, err := json.Marshal(author)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("marshal reply author: %w", err)
	}

	reply := domain.Reply{
		LetterID:  letterID,
		Content:   content,
		Author:    author,
		IsPrivate: isPrivate,
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO replies (letter_id, content, author, is_private)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		letterID, content, authorJSON, isPrivate,
	).Scan(&reply.ID, &reply.CreatedAt)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("create reply: %w", err)
	}
	return reply, nil
}

func (r *ReplyRepository) ListReplies(ctx context.Context, letterID string) ([]domain.Reply, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, author, is_private, created_at
		 FROM replies WHERE letter_id=$1
		 ORDER BY created_at ASC, id ASC`, letterID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var replies []domain.Reply
	for rows.Next() {
		reply := domain.Reply{LetterID: letterID}
		var authorJSON []byte
		if err := rows.Scan(&reply.ID, &reply.Content, &authorJSON, &reply.IsPrivate, &reply.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		if err := json.Unmarshal(authorJSON, &reply.Author); err != nil {
			return nil, fmt.Errorf("unmarshal reply author: %w", err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}
