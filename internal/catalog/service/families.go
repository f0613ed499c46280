package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/provider"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

// Provider outcomes reported to metrics.
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
	outcomePanic = "panic"
)

// Stage is one provider in a fallback chain.
type Stage struct {
	Provider provider.Provider
	// Skip, when set, reports whether the stage sits out searches for t.
	Skip func(t domain.MediaType) bool
}

// Family is an ordered provider chain serving a group of media types. Later
// stages only run while every earlier stage came back empty.
type Family struct {
	Name   string
	Base   domain.MediaType
	Types  []domain.MediaType
	Stages []Stage
}

// Serves reports whether the family answers searches for t.
func (f Family) Serves(t domain.MediaType) bool {
	if t == domain.TypeAll {
		return true
	}
	for _, v := range f.Types {
		if v == t {
			return true
		}
	}
	return false
}

// DefaultFamilies wires the adapters into the illustrated chain
// (AniList then Jikan) and the screen chain (TMDB, OMDb, then TVMaze).
func DefaultFamilies(set *provider.Set) []Family {
	return []Family{
		{
			Name:  "illustrated",
			Base:  domain.TypeAnime,
			Types: domain.IllustratedTypes,
			Stages: []Stage{
				{Provider: set.AniList},
				{Provider: set.Jikan},
			},
		},
		{
			Name:  "screen",
			Base:  domain.TypeSeries,
			Types: domain.ScreenTypes,
			Stages: []Stage{
				{Provider: set.TMDB},
				{Provider: set.OMDb},
				{Provider: set.TVMaze, Skip: func(t domain.MediaType) bool { return t == domain.TypeMovie }},
			},
		},
	}
}

// chainRunner walks the families for a search. It never fails: a provider
// error or panic is logged and counts as an empty answer.
type chainRunner struct {
	families []Family
	metrics  *metrics.Metrics
	logger   interfaces.Logger
}

// run searches every family serving t and returns at most limit records.
// Families run concurrently; results keep family order.
func (c *chainRunner) run(ctx context.Context, query string, t domain.MediaType, limit int) []domain.MediaRecord {
	var serving []Family
	for _, f := range c.families {
		if f.Serves(t) {
			serving = append(serving, f)
		}
	}

	results := make([][]domain.MediaRecord, len(serving))
	var g errgroup.Group
	for i, f := range serving {
		g.Go(func() error {
			results[i] = c.runFamily(ctx, f, query, t, limit)
			return nil
		})
	}
	_ = g.Wait()

	var records []domain.MediaRecord
	for _, r := range results {
		records = append(records, r...)
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

func (c *chainRunner) runFamily(ctx context.Context, f Family, query string, t domain.MediaType, limit int) []domain.MediaRecord {
	for _, stage := range f.Stages {
		if stage.Provider == nil || (stage.Skip != nil && stage.Skip(t)) {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		// Any row stops the chain, even one the type filter drops later.
		if records := c.callProvider(ctx, stage.Provider, query, t, limit); len(records) > 0 {
			return filterType(records, t, f.Base)
		}
	}
	return nil
}

func (c *chainRunner) callProvider(ctx context.Context, p provider.Provider, query string, t domain.MediaType, limit int) (records []domain.MediaRecord) {
	start := time.Now()
	log := c.logger.WithContext(ctx).WithFields(
		interfaces.String("provider", p.Name()),
		interfaces.String("query", query),
		interfaces.String("type", t.KeyPart()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Provider panicked", interfaces.Error(fmt.Errorf("%v", r)))
			c.metrics.ObserveProvider(p.Name(), outcomePanic, time.Since(start))
			records = nil
		}
	}()

	records, err := p.Search(ctx, query, t, limit)
	switch {
	case err != nil:
		log.Warn("Provider search failed", interfaces.Error(err))
		c.metrics.ObserveProvider(p.Name(), outcomeError, time.Since(start))
		return nil
	case len(records) == 0:
		c.metrics.ObserveProvider(p.Name(), outcomeEmpty, time.Since(start))
	default:
		c.metrics.ObserveProvider(p.Name(), outcomeOK, time.Since(start))
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// filterType keeps records of the requested type. Without a type every
// record is kept after its enums are checked against the family base.
func filterType(records []domain.MediaRecord, t, base domain.MediaType) []domain.MediaRecord {
	out := make([]domain.MediaRecord, 0, len(records))
	for _, rec := range records {
		rec.Sanitize(domain.OrDefault(t, base))
		if t != domain.TypeAll && rec.Type != t {
			continue
		}
		out = append(out, rec)
	}
	return out
}
