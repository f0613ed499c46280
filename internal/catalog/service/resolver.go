// Package service implements the cache-aside media search: query cache,
// canonical store, then the provider fallback chains.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/errors"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

// Cache lookup results reported to metrics.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// Options tunes the resolver. Zero values fall back to the config defaults.
type Options struct {
	CacheTTL         time.Duration
	MaxLimit         int
	BatchConcurrency int
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = config.DefaultCacheTTL
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = config.MaxSearchLimit
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = config.DefaultBatchConcurrency
	}
	return o
}

// Resolver turns free-text titles into canonical media records.
type Resolver struct {
	store     repository.MediaStore
	cache     repository.QueryCache
	chain     *chainRunner
	publisher interfaces.EventPublisher
	metrics   *metrics.Metrics
	logger    interfaces.Logger
	opts      Options
}

// NewResolver creates a new resolver. publisher and m may be nil.
func NewResolver(
	store repository.MediaStore,
	cache repository.QueryCache,
	families []Family,
	publisher interfaces.EventPublisher,
	m *metrics.Metrics,
	logger interfaces.Logger,
	opts Options,
) *Resolver {
	return &Resolver{
		store:     store,
		cache:     cache,
		chain:     &chainRunner{families: families, metrics: m, logger: logger},
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// MaxLimit is the largest limit Search accepts.
func (r *Resolver) MaxLimit() int { return r.opts.MaxLimit }

// Search returns at most limit records for query. It only fails on invalid
// arguments; provider and persistence failures degrade to fewer results.
func (r *Resolver) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if err := r.validate(query, mediaType, limit); err != nil {
		return nil, err
	}
	log := r.logger.WithContext(ctx)
	key := domain.CacheKey(query, mediaType)

	cached, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("Query cache lookup failed", interfaces.String("key", key), interfaces.Error(err))
		r.metrics.ObserveCacheLookup(cacheError)
	case ok:
		r.metrics.ObserveCacheLookup(cacheHit)
		return truncate(cached, limit), nil
	default:
		r.metrics.ObserveCacheLookup(cacheMiss)
	}

	local, err := r.store.Search(ctx, domain.NormalizeQuery(query), mediaType, limit)
	if err != nil {
		log.Error("Store search failed", interfaces.String("query", query), interfaces.Error(err))
		local = nil
	}

	var external []domain.MediaRecord
	if len(local) < limit {
		external = r.persist(ctx, r.chain.run(ctx, query, mediaType, limit-len(local)))
	}

	results := merge(local, external, limit)
	if err := r.cache.Put(ctx, key, query, mediaType, results, r.opts.CacheTTL); err != nil {
		log.Warn("Query cache write failed", interfaces.String("key", key), interfaces.Error(err))
	}

	log.Debug("Search resolved",
		interfaces.String("key", key),
		interfaces.Int("local", len(local)),
		interfaces.Int("external", len(external)),
		interfaces.Int("returned", len(results)))

	return results, nil
}

// Get returns a stored record by its internal id.
func (r *Resolver) Get(ctx context.Context, id uuid.UUID) (*domain.MediaRecord, error) {
	return r.store.GetByID(ctx, id)
}

// Trending returns the best rated stored records.
func (r *Resolver) Trending(ctx context.Context, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if mediaType != domain.TypeAll && !mediaType.Valid() {
		return nil, errors.BadRequestf("unknown media type %q", mediaType)
	}
	if limit < 1 || limit > r.opts.MaxLimit {
		return nil, errors.BadRequestf("limit must be between 1 and %d", r.opts.MaxLimit)
	}
	return r.store.TopRated(ctx, mediaType, limit)
}

// Ready reports whether the store can be reached.
func (r *Resolver) Ready(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Resolver) validate(query string, mediaType domain.MediaType, limit int) error {
	if strings.TrimSpace(query) == "" {
		return errors.BadRequest("query is required")
	}
	if mediaType != domain.TypeAll && !mediaType.Valid() {
		return errors.BadRequestf("unknown media type %q", mediaType)
	}
	if limit < 1 || limit > r.opts.MaxLimit {
		return errors.BadRequestf("limit must be between 1 and %d", r.opts.MaxLimit)
	}
	return nil
}

// persist upserts provider records. A record whose upsert fails is still
// returned, without an internal id.
func (r *Resolver) persist(ctx context.Context, records []domain.MediaRecord) []domain.MediaRecord {
	log := r.logger.WithContext(ctx)
	for i := range records {
		rec := &records[i]
		created, err := r.store.Upsert(ctx, rec)
		if err != nil {
			log.Warn("Failed to persist provider record",
				interfaces.String("title", rec.Title),
				interfaces.String("source", rec.Source),
				interfaces.Error(err))
			continue
		}
		r.publish(ctx, rec, created)
	}
	return records
}

func (r *Resolver) publish(ctx context.Context, rec *domain.MediaRecord, created bool) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, domain.NewMediaResolvedEvent(rec, created)); err != nil {
		r.logger.WithContext(ctx).Warn("Failed to publish media event",
			interfaces.String("media_id", rec.ID.String()),
			interfaces.Error(err))
	}
}

// merge appends external to local, dropping repeated internal ids, and caps
// the list at limit. Records without an id are never treated as repeats.
func merge(local, external []domain.MediaRecord, limit int) []domain.MediaRecord {
	seen := make(map[uuid.UUID]struct{}, len(local)+len(external))
	results := make([]domain.MediaRecord, 0, min(limit, len(local)+len(external)))

	for _, list := range [][]domain.MediaRecord{local, external} {
		for _, rec := range list {
			if len(results) == limit {
				return results
			}
			if rec.ID != uuid.Nil {
				if _, dup := seen[rec.ID]; dup {
					continue
				}
				seen[rec.ID] = struct{}{}
			}
			results = append(results, rec)
		}
	}
	return results
}

func truncate(records []domain.MediaRecord, limit int) []domain.MediaRecord {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}
