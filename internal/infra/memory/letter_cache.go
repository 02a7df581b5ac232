package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"linkletter-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LetterLoader fetches letter content from a backing store (e.g., Postgres).
type LetterLoader interface {
	LoadLetter(ctx context.Context, letterID string) (domain.Letter, error)
}

// LetterCache caches letters with TTL to avoid repeated store hits while a
// letter is being shared around.
type LetterCache struct {
	loader LetterLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedLetter
}

type cachedLetter struct {
	letter    domain.Letter
	expiresAt time.Time
}

func NewLetterCache(loader LetterLoader, ttl time.Duration) *LetterCache {
	return &LetterCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedLetter),
	}
}

func (c *LetterCache) GetLetter(ctx context.Context, letterID string) (domain.Letter, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[letterID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.letter, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(letterID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[letterID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.letter, nil
		}
		c.mu.RUnlock()

		letter, err := c.loader.LoadLetter(ctx, letterID)
		if err != nil {
			return domain.Letter{}, err
		}

		c.mu.Lock()
		c.cache[letterID] = cachedLetter{
			letter:    letter,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return letter, nil
	})
	if err != nil {
		return domain.Letter{}, err
	}
	return result.(domain.Letter), nil
}

func (c *LetterCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticLetterLoader is a simple loader backed by an in-memory map (useful
// for tests/demos).
type StaticLetterLoader struct {
	letters map[string]domain.Letter
}

func NewStaticLetterLoader(letters map[string]domain.Letter) *StaticLetterLoader {
	return &StaticLetterLoader{letters: letters}
}

func (l *StaticLetterLoader) LoadLetter(_ context.Context, letterID string) (domain.Letter, error) {
	if letter, ok := l.letters[letterID]; ok {
		return letter, nil
	}
	return domain.Letter{}, domain.ErrLetterNotFound
}
