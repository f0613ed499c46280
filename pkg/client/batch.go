package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// Result sources. Server answers carry their own ("database", "api").
const (
	SourceCache = "cache"
	SourceNone  = "none"
)

var (
	// ErrPreloadInProgress is returned by PreloadAll while another preload runs.
	ErrPreloadInProgress = errors.New("preload already in progress")
	// ErrPreloadCanceled is returned when Cancel stopped a preload early.
	ErrPreloadCanceled = errors.New("preload canceled")
)

// BatchSearcher runs the resolver's bulk lookup.
type BatchSearcher interface {
	BatchSearch(ctx context.Context, items []Item) ([]BatchMatch, error)
}

// BatchResult is the image outcome for one item. ImageURL is NoImage when
// the item has none.
type BatchResult struct {
	ID       int64  `json:"id"`
	ImageURL string `json:"imageUrl"`
	Source   string `json:"source"`
}

// Progress is reported after every wave.
type Progress struct {
	Loaded     int     `json:"loaded"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// BatchFetcherOptions tunes a BatchFetcher. Zero values use the config
// defaults.
type BatchFetcherOptions struct {
	ChunkSize int
	Timeout   time.Duration
}

// BatchFetcher fills images for many items through the bulk endpoint, one
// wave of ChunkSize items at a time.
type BatchFetcher struct {
	searcher  BatchSearcher
	cache     *ImageCache
	sink      ImageSink
	chunkSize int
	timeout   time.Duration
	logger    interfaces.Logger

	preloading atomic.Bool
	mu         sync.Mutex
	cancel     chan struct{}
}

// NewBatchFetcher creates a batch fetcher. sink may be nil.
func NewBatchFetcher(searcher BatchSearcher, cache *ImageCache, sink ImageSink, logger interfaces.Logger, opts BatchFetcherOptions) *BatchFetcher {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = config.DefaultChunkSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultBatchTimeout
	}
	return &BatchFetcher{
		searcher:  searcher,
		cache:     cache,
		sink:      sink,
		chunkSize: opts.ChunkSize,
		timeout:   opts.Timeout,
		logger:    logger,
	}
}

// Fetch resolves images for items. Cached items are answered without a
// call. A failed wave is logged and skipped, so the result may be partial;
// the error is only ctx's.
func (f *BatchFetcher) Fetch(ctx context.Context, items []Item, onProgress func(Progress)) ([]BatchResult, error) {
	return f.fetch(ctx, items, onProgress, nil)
}

// PreloadAll is Fetch guarded against re-entry and stoppable with Cancel.
// Cancel skips the remaining waves but lets the current one finish.
func (f *BatchFetcher) PreloadAll(ctx context.Context, items []Item, onProgress func(Progress)) ([]BatchResult, error) {
	if !f.preloading.CompareAndSwap(false, true) {
		return nil, ErrPreloadInProgress
	}
	defer f.preloading.Store(false)

	stop := make(chan struct{})
	f.mu.Lock()
	f.cancel = stop
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.cancel = nil
		f.mu.Unlock()
	}()

	return f.fetch(ctx, items, onProgress, stop)
}

// Cancel stops a running PreloadAll before its next wave.
func (f *BatchFetcher) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		close(f.cancel)
		f.cancel = nil
	}
}

// Preloading reports whether PreloadAll is running.
func (f *BatchFetcher) Preloading() bool {
	return f.preloading.Load()
}

func (f *BatchFetcher) fetch(ctx context.Context, items []Item, onProgress func(Progress), stop <-chan struct{}) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(items))
	uncached := make([]Item, 0, len(items))

	for _, item := range items {
		if imageURL, ok := f.cache.Get(item.ID); ok {
			results = append(results, BatchResult{ID: item.ID, ImageURL: imageURL, Source: SourceCache})
			continue
		}
		if _, ok := domain.ParseTypeLabel(item.Type); !ok {
			f.cache.Put(item.ID, NoImage)
			results = append(results, BatchResult{ID: item.ID, ImageURL: NoImage, Source: SourceNone})
			continue
		}
		uncached = append(uncached, item)
	}

	progress := Progress{Loaded: len(items) - len(uncached), Total: len(items)}
	if len(uncached) == 0 {
		progress.Percentage = 100
		if onProgress != nil {
			onProgress(progress)
		}
		return results, nil
	}

	for start := 0; start < len(uncached); start += f.chunkSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		select {
		case <-stop:
			f.logger.Info("Preload canceled", interfaces.Int("loaded", progress.Loaded), interfaces.Int("total", progress.Total))
			return results, ErrPreloadCanceled
		default:
		}

		wave := uncached[start:min(start+f.chunkSize, len(uncached))]
		results = append(results, f.runWave(ctx, wave)...)

		progress.Loaded += len(wave)
		progress.Percentage = float64(progress.Loaded) * 100 / float64(progress.Total)
		if onProgress != nil {
			onProgress(progress)
		}
	}

	return results, nil
}

func (f *BatchFetcher) runWave(ctx context.Context, wave []Item) []BatchResult {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	matches, err := f.searcher.BatchSearch(ctx, wave)
	if err != nil {
		f.logger.Warn("Batch wave failed",
			interfaces.Int("items", len(wave)),
			interfaces.Int64("first_id", wave[0].ID),
			interfaces.Error(err))
		return nil
	}

	results := make([]BatchResult, 0, len(matches))
	for _, m := range matches {
		imageURL := NoImage
		if m.Found && m.Data != nil {
			imageURL = m.Data.CoverImage
		}
		f.cache.Put(m.ID, imageURL)

		if imageURL != NoImage && f.sink != nil {
			if err := f.sink.SaveImage(ctx, m.ID, imageURL); err != nil {
				f.logger.Warn("Failed to save image url",
					interfaces.Int64("id", m.ID),
					interfaces.Error(err))
			}
		}
		results = append(results, BatchResult{ID: m.ID, ImageURL: imageURL, Source: m.Source})
	}
	return results
}
