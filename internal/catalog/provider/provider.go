// Package provider contains the adapters for the external catalogs the
// resolver falls back to. Every adapter maps its upstream shape onto
// domain.MediaRecord and reports failures as errors; deciding what a failure
// means for a search is the caller's job.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

// Provider names, also used as MediaRecord.Source.
const (
	NameAniList = "anilist"
	NameJikan   = "jikan"
	NameTMDB    = "tmdb"
	NameOMDb    = "omdb"
	NameTVMaze  = "tvmaze"
)

// Provider searches one external catalog.
type Provider interface {
	Name() string
	// Search returns at most limit records. mediaType may be domain.TypeAll.
	Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error)
}

// maxDetailCalls bounds concurrent per-item detail requests.
const maxDetailCalls = 5

// Options configures a single adapter.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Retries    uint
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     interfaces.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultProviderTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 250 * time.Millisecond
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoop()
	}
	return o
}

// Set is the full collection of adapters the resolver knows about.
type Set struct {
	AniList *AniList
	Jikan   *Jikan
	TMDB    *TMDB
	OMDb    *OMDb
	TVMaze  *TVMaze
}

// NewSet builds every adapter from configuration.
func NewSet(cfg config.ProvidersConfig, log interfaces.Logger) *Set {
	opts := func(ep config.ProviderEndpoint) Options {
		return Options{
			BaseURL: ep.BaseURL,
			APIKey:  ep.APIKey,
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
			Logger:  log,
		}
	}
	return &Set{
		AniList: NewAniList(opts(cfg.AniList)),
		Jikan:   NewJikan(opts(cfg.Jikan.ProviderEndpoint), cfg.Jikan.Delay),
		TMDB:    NewTMDB(opts(cfg.TMDB.ProviderEndpoint), cfg.TMDB.ImageBaseURL),
		OMDb:    NewOMDb(opts(cfg.OMDb)),
		TVMaze:  NewTVMaze(opts(cfg.TVMaze)),
	}
}
