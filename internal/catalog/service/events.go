package service

import (
	"context"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

// ResolvedMetricsHandler counts media.resolved events by source and whether
// the record was new.
type ResolvedMetricsHandler struct {
	metrics *metrics.Metrics
}

// NewResolvedMetricsHandler creates the handler.
func NewResolvedMetricsHandler(m *metrics.Metrics) *ResolvedMetricsHandler {
	return &ResolvedMetricsHandler{metrics: m}
}

func (h *ResolvedMetricsHandler) EventType() string { return domain.EventMediaResolved }

func (h *ResolvedMetricsHandler) Handle(_ context.Context, event interfaces.Event) error {
	ev, ok := event.(*domain.MediaResolvedEvent)
	if !ok {
		return nil
	}
	h.metrics.ObserveResolved(ev.Source, ev.Created)
	return nil
}
