package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// Where a batch result came from.
const (
	SourceDatabase = "database"
	SourceAPI      = "api"
	SourceCache    = "cache"
	SourceNone     = "none"
)

// BatchItem is one title a client wants resolved. Type accepts the labels
// UI lists use, such as "K-Drama" or "TV".
type BatchItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// BatchItemResult answers one BatchItem.
type BatchItemResult struct {
	ID     int64               `json:"id"`
	Found  bool                `json:"found"`
	Data   *domain.MediaRecord `json:"data,omitempty"`
	Source string              `json:"source"`
}

// BatchSearch resolves every item to at most one record. Items run
// concurrently up to the configured limit and results keep input order.
// The query cache is bypassed; each item is a single best match.
func (r *Resolver) BatchSearch(ctx context.Context, items []BatchItem) []BatchItemResult {
	results := make([]BatchItemResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.BatchConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = r.resolveOne(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	found := 0
	for _, res := range results {
		if res.Found {
			found++
		}
	}
	r.logger.WithContext(ctx).Info("Batch search finished",
		interfaces.Int("items", len(items)),
		interfaces.Int("found", found))

	return results
}

func (r *Resolver) resolveOne(ctx context.Context, item BatchItem) BatchItemResult {
	miss := BatchItemResult{ID: item.ID, Source: SourceNone}

	mediaType, ok := domain.ParseTypeLabel(item.Type)
	if !ok || strings.TrimSpace(item.Title) == "" {
		return miss
	}

	local, err := r.store.Search(ctx, domain.NormalizeQuery(item.Title), mediaType, 1)
	if err != nil {
		r.logger.WithContext(ctx).Warn("Store search failed",
			interfaces.String("title", item.Title),
			interfaces.Error(err))
	}
	if len(local) > 0 {
		return BatchItemResult{ID: item.ID, Found: true, Data: &local[0], Source: SourceDatabase}
	}

	external := r.persist(ctx, r.chain.run(ctx, item.Title, mediaType, 1))
	if len(external) > 0 {
		return BatchItemResult{ID: item.ID, Found: true, Data: &external[0], Source: SourceAPI}
	}
	return miss
}
