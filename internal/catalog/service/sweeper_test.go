package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
	"github.com/narwhalmedia/mediaresolver/test/testutil"
)

func TestCacheSweeper_Sweep(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tdb := testutil.SetupSQLite(t, repository.Models()...)
	cache := repository.NewGormQueryCache(tdb.DB).WithClock(testutil.FixedClock(&now))

	require.NoError(t, cache.Put(ctx, domain.CacheKey("old", domain.TypeAll), "old", domain.TypeAll, nil, time.Hour))
	require.NoError(t, cache.Put(ctx, domain.CacheKey("fresh", domain.TypeAll), "fresh", domain.TypeAll, nil, 3*time.Hour))
	now = now.Add(2 * time.Hour)

	reg := prometheus.NewRegistry()
	sweeper, err := service.NewCacheSweeper(cache, "@every 10m", metrics.New(reg), logger.NewNoop())
	require.NoError(t, err)

	// Act
	deleted, err := sweeper.Sweep(ctx)

	// Assert
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	_, ok, err := cache.Get(ctx, domain.CacheKey("fresh", domain.TypeAll))
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := promtestutil.GatherAndCount(reg, "mediaresolver_query_cache_swept_entries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCacheSweeper_InvalidSchedule(t *testing.T) {
	_, err := service.NewCacheSweeper(repository.NewMemoryQueryCache(0, nil), "every tuesday", nil, logger.NewNoop())

	assert.ErrorContains(t, err, "invalid sweep schedule")
}

func TestCacheSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sweeper, err := service.NewCacheSweeper(repository.NewMemoryQueryCache(0, nil), "@every 1h", nil, logger.NewNoop())
	require.NoError(t, err)

	sweeper.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}
