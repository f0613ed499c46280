package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// Searcher runs a single-item search against the resolver.
type Searcher interface {
	Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error)
}

// ImageSink stores a resolved image URL back on the caller's own record.
type ImageSink interface {
	SaveImage(ctx context.Context, id int64, imageURL string) error
}

// FetchQueueOptions tunes a FetchQueue. Zero values use the config defaults.
type FetchQueueOptions struct {
	RequestsPerMinute int
	Timeout           time.Duration
}

// FetchQueue resolves cover images one item at a time, never faster than
// the configured request budget. Concurrent requests for the same id share
// one search.
type FetchQueue struct {
	searcher Searcher
	cache    *ImageCache
	sink     ImageSink
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   interfaces.Logger

	mu      sync.Mutex
	queue   []*fetchItem
	pending map[int64]*fetchItem
	running bool
	wg      sync.WaitGroup
}

type fetchItem struct {
	id        int64
	title     string
	mediaType domain.MediaType
	done      chan struct{}
	imageURL  string
}

// NewFetchQueue creates a fetch queue. sink may be nil.
func NewFetchQueue(searcher Searcher, cache *ImageCache, sink ImageSink, logger interfaces.Logger, opts FetchQueueOptions) *FetchQueue {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = config.DefaultRequestsPerMinute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultSingleTimeout
	}
	return &FetchQueue{
		searcher: searcher,
		cache:    cache,
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		timeout:  opts.Timeout,
		logger:   logger,
		pending:  make(map[int64]*fetchItem),
	}
}

// FetchImage returns the cover image URL for id, or NoImage when none could
// be found. ctx only bounds this caller's wait; queued work always runs to
// completion.
func (q *FetchQueue) FetchImage(ctx context.Context, id int64, title, typeLabel string) (string, error) {
	if imageURL, ok := q.cache.Get(id); ok {
		return imageURL, nil
	}

	mediaType, ok := domain.ParseTypeLabel(typeLabel)
	if !ok {
		q.cache.Put(id, NoImage)
		return NoImage, nil
	}

	q.mu.Lock()
	// The worker caches before it clears pending, so a miss above may have
	// been filled in the meantime.
	if imageURL, ok := q.cache.Get(id); ok {
		q.mu.Unlock()
		return imageURL, nil
	}
	item, queued := q.pending[id]
	if !queued {
		item = &fetchItem{id: id, title: title, mediaType: mediaType, done: make(chan struct{})}
		q.pending[id] = item
		q.queue = append(q.queue, item)
		if !q.running {
			q.running = true
			q.wg.Add(1)
			go q.work()
		}
	}
	q.mu.Unlock()

	select {
	case <-item.done:
		return item.imageURL, nil
	case <-ctx.Done():
		return NoImage, ctx.Err()
	}
}

// Len reports how many items are queued or in flight.
func (q *FetchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the worker has drained the queue.
func (q *FetchQueue) Wait() {
	q.wg.Wait()
}

func (q *FetchQueue) work() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		item := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()

		item.imageURL = q.resolve(item)
		q.cache.Put(item.id, item.imageURL)

		q.mu.Lock()
		delete(q.pending, item.id)
		q.mu.Unlock()
		close(item.done)
	}
}

func (q *FetchQueue) resolve(item *fetchItem) string {
	// Background context never errors for a burst of one.
	_ = q.limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	results, err := q.searcher.Search(ctx, item.title, item.mediaType, 1)
	if err != nil {
		q.logger.Warn("Image lookup failed",
			interfaces.Int64("id", item.id),
			interfaces.String("title", item.title),
			interfaces.Error(err))
		return NoImage
	}
	if len(results) == 0 || results[0].CoverImage == "" {
		return NoImage
	}

	imageURL := results[0].CoverImage
	if q.sink != nil {
		if err := q.sink.SaveImage(ctx, item.id, imageURL); err != nil {
			q.logger.Warn("Failed to save image url",
				interfaces.Int64("id", item.id),
				interfaces.Error(err))
		}
	}
	return imageURL
}
