package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

// sweepTimeout bounds a single DeleteExpired call.
const sweepTimeout = time.Minute

// CacheSweeper periodically reclaims expired query cache entries. Reads
// already treat expired entries as absent; the sweep only frees storage.
type CacheSweeper struct {
	cache   repository.QueryCache
	cron    *cron.Cron
	metrics *metrics.Metrics
	logger  interfaces.Logger
}

// NewCacheSweeper schedules Sweep on the given cron spec, e.g. "@every 10m".
func NewCacheSweeper(cache repository.QueryCache, schedule string, m *metrics.Metrics, logger interfaces.Logger) (*CacheSweeper, error) {
	s := &CacheSweeper{
		cache:   cache,
		cron:    cron.New(),
		metrics: m,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *CacheSweeper) Start() {
	s.cron.Start()
	s.logger.Info("Query cache sweeper started")
}

// Stop stops the schedule and waits for a running sweep to finish or ctx to
// expire.
func (s *CacheSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep deletes expired entries once.
func (s *CacheSweeper) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.cache.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveSweep(deleted)
	return deleted, nil
}

func (s *CacheSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	deleted, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("Query cache sweep failed", interfaces.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("Query cache swept", interfaces.Int64("deleted", deleted))
	}
}
