package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// RedisQueryCache stores search responses as redis strings with a TTL.
// Redis expires keys itself, so DeleteExpired has nothing to do.
type RedisQueryCache struct {
	client redis.UniversalClient
	prefix string
	now    Clock
}

type redisEntry struct {
	Query     string          `json:"query"`
	Type      string          `json:"type"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Results   json.RawMessage `json:"results"`
}

// NewRedisQueryCache creates a redis backed query cache. Keys are prefixed with prefix.
func NewRedisQueryCache(client redis.UniversalClient, prefix string) *RedisQueryCache {
	return &RedisQueryCache{client: client, prefix: prefix + "query:", now: utcNow}
}

// WithClock overrides the time source used for expiry checks.
func (c *RedisQueryCache) WithClock(now Clock) *RedisQueryCache {
	c.now = now
	return c
}

func (c *RedisQueryCache) Get(ctx context.Context, key string) ([]domain.MediaRecord, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read query cache: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	// redis TTLs have second granularity; the stored expiry is authoritative.
	if !entry.ExpiresAt.After(c.now()) {
		return nil, false, nil
	}

	results, err := decodeResults(entry.Results)
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *RedisQueryCache) Put(ctx context.Context, key, query string, mediaType domain.MediaType, results []domain.MediaRecord, ttl time.Duration) error {
	payload, err := encodeResults(results)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(redisEntry{
		Query:     query,
		Type:      mediaType.KeyPart(),
		ExpiresAt: c.now().UTC().Add(ttl),
		Results:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write query cache: %w", err)
	}
	return nil
}

func (c *RedisQueryCache) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
