package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

// rateWindow is the window RequestsPerIP is counted over.
const rateWindow = time.Minute

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// RequestsPerIP limits /api requests per client per minute. Zero disables it.
	RequestsPerIP int
}

// NewRouter mounts the handler with request id, logging, metrics, recovery
// and per-IP rate limiting.
func NewRouter(h *HTTPHandler, m *metrics.Metrics, log interfaces.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(log))
	r.Use(metrics.HTTPMiddleware(m))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Route("/api/media", func(r chi.Router) {
		if cfg.RequestsPerIP > 0 {
			r.Use(rateLimit(cfg.RequestsPerIP))
		}
		r.Get("/search", h.Search)
		r.Get("/trending", h.Trending)
		r.Post("/batch-search", h.BatchSearch)
		r.Get("/{id}", h.Get)
	})

	return r
}

func rateLimit(limit int) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Success: false, Error: "too many requests"})
		}),
	)
}
