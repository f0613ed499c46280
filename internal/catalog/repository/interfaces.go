package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// MediaStore defines the interface for canonical record persistence.
type MediaStore interface {
	// Search matches the normalized query against titles and keywords,
	// best rated first.
	Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaRecord, error)
	// Upsert inserts rec or updates the row sharing one of its external ids.
	// rec is updated in place with the stored ID and timestamps.
	Upsert(ctx context.Context, rec *domain.MediaRecord) (created bool, err error)
	TopRated(ctx context.Context, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error)
	Ping(ctx context.Context) error
}

// QueryCache memoizes full search responses by cache key.
type QueryCache interface {
	// Get returns the stored results, or ok=false on a miss or an expired entry.
	Get(ctx context.Context, key string) (results []domain.MediaRecord, ok bool, err error)
	Put(ctx context.Context, key, query string, mediaType domain.MediaType, results []domain.MediaRecord, ttl time.Duration) error
	// DeleteExpired removes entries whose expiry has passed and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Clock returns the current time. Caches take one so expiry can be tested.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
