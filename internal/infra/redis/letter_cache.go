package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"linkletter-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// LetterLoader fetches letter content from a backing store (e.g., Postgres).
type LetterLoader interface {
	LoadLetter(ctx context.Context, letterID string) (domain.Letter, error)
}

// LetterCache caches letters in Redis as JSON and falls back to a loader on
// cache miss. A shared letter gets opened by many viewers in a short window,
// so the cache absorbs the read burst.
type LetterCache struct {
	client *redis.Client
	loader LetterLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLetterCache(client *redis.Client, loader LetterLoader, ttl time.Duration) *LetterCache {
	return &LetterCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LetterCache) GetLetter(ctx context.Context, letterID string) (domain.Letter, error) {
	key := c.letterKey(letterID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var letter domain.Letter
		if err := json.Unmarshal(raw, &letter); err == nil {
			return letter, nil
		}
	}

	result, err, _ := c.sf.Do(letterID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var letter domain.Letter
			if err := json.Unmarshal(raw, &letter); err == nil {
				return letter, nil
			}
		}

		letter, err := c.loader.LoadLetter(ctx, letterID)
		if err != nil {
			return domain.Letter{}, err
		}

		raw, err := json.Marshal(letter)
		if err != nil {
			return domain.Letter{}, fmt.Errorf("marshal letter: %w", err)
		}
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return letter, nil
	})
	if err != nil {
		return domain.Letter{}, err
	}
	return result.(domain.Letter), nil
}

func (c *LetterCache) letterKey(letterID string) string {
	return "letter:" + letterID
}

func (c *LetterCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
