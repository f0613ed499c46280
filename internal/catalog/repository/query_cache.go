package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// GormQueryCache stores search responses in the query_cache_entries table.
type GormQueryCache struct {
	db  *gorm.DB
	now Clock
}

// NewGormQueryCache creates a query cache backed by db.
func NewGormQueryCache(db *gorm.DB) *GormQueryCache {
	return &GormQueryCache{db: db, now: utcNow}
}

// WithClock overrides the time source used for expiry checks.
func (c *GormQueryCache) WithClock(now Clock) *GormQueryCache {
	c.now = now
	return c
}

func (c *GormQueryCache) Get(ctx context.Context, key string) ([]domain.MediaRecord, bool, error) {
	var entry QueryCacheEntry
	err := c.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, c.now().UTC()).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read query cache: %w", err)
	}

	results, err := decodeResults([]byte(entry.Results))
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *GormQueryCache) Put(ctx context.Context, key, query string, mediaType domain.MediaType, results []domain.MediaRecord, ttl time.Duration) error {
	payload, err := encodeResults(results)
	if err != nil {
		return err
	}

	now := c.now().UTC()
	entry := QueryCacheEntry{
		CacheKey:  key,
		Query:     query,
		Type:      mediaType.KeyPart(),
		Results:   string(payload),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"query", "type", "results", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write query cache: %w", err)
	}
	return nil
}

func (c *GormQueryCache) DeleteExpired(ctx context.Context) (int64, error) {
	res := c.db.WithContext(ctx).Where("expires_at <= ?", c.now().UTC()).Delete(&QueryCacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func encodeResults(results []domain.MediaRecord) ([]byte, error) {
	if results == nil {
		results = []domain.MediaRecord{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cached results: %w", err)
	}
	return payload, nil
}

func decodeResults(payload []byte) ([]domain.MediaRecord, error) {
	var results []domain.MediaRecord
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("failed to decode cached results: %w", err)
	}
	if results == nil {
		results = []domain.MediaRecord{}
	}
	return results, nil
}
