package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/pkg/events"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

func TestResolvedMetricsHandler_CountsBySource(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := events.NewInMemoryEventBus(logger.NewNoop())
	require.NoError(t, bus.Subscribe(domain.EventMediaResolved, service.NewResolvedMetricsHandler(metrics.New(reg))))

	rec := &domain.MediaRecord{ID: uuid.New(), Title: "Naruto", Type: domain.TypeAnime, Source: "anilist"}
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domain.NewMediaResolvedEvent(rec, true)))
	require.NoError(t, bus.Publish(ctx, domain.NewMediaResolvedEvent(rec, false)))
	require.NoError(t, bus.Publish(ctx, domain.NewMediaResolvedEvent(rec, false)))

	expected := `
# HELP mediaresolver_resolved_records_total Provider records stored, by provider and whether a row was created
# TYPE mediaresolver_resolved_records_total counter
mediaresolver_resolved_records_total{created="false",source="anilist"} 2
mediaresolver_resolved_records_total{created="true",source="anilist"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mediaresolver_resolved_records_total"))
}
