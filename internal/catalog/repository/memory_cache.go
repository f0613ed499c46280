package repository

import (
	"context"
	"time"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/utils"
)

// MemoryQueryCache keeps search responses in process. Results are stored
// encoded so callers never share slices with the cache.
type MemoryQueryCache struct {
	cache *utils.InMemoryCache[[]byte]
}

// NewMemoryQueryCache creates an in-process query cache. cleanupInterval of
// zero leaves expiry to DeleteExpired.
func NewMemoryQueryCache(cleanupInterval time.Duration, now Clock) *MemoryQueryCache {
	if now == nil {
		now = utcNow
	}
	return &MemoryQueryCache{cache: utils.NewInMemoryCache[[]byte](cleanupInterval, now)}
}

func (c *MemoryQueryCache) Get(_ context.Context, key string) ([]domain.MediaRecord, bool, error) {
	payload, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	results, err := decodeResults(payload)
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *MemoryQueryCache) Put(_ context.Context, key, _ string, _ domain.MediaType, results []domain.MediaRecord, ttl time.Duration) error {
	payload, err := encodeResults(results)
	if err != nil {
		return err
	}
	c.cache.Set(key, payload, ttl)
	return nil
}

func (c *MemoryQueryCache) DeleteExpired(context.Context) (int64, error) {
	return int64(c.cache.DeleteExpired()), nil
}

// Close stops the background janitor.
func (c *MemoryQueryCache) Close() {
	c.cache.Close()
}
