// Package handler exposes the resolver over HTTP/JSON.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/errors"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

// maxBodyBytes caps batch request bodies.
const maxBodyBytes = 1 << 20

// HTTPHandler serves the media API.
type HTTPHandler struct {
	resolver      service.ResolverInterface
	logger        interfaces.Logger
	defaultLimit  int
	maxBatchItems int
}

// NewHTTPHandler creates a new HTTP handler. Zero limits fall back to the
// config defaults.
func NewHTTPHandler(resolver service.ResolverInterface, logger interfaces.Logger, defaultLimit, maxBatchItems int) *HTTPHandler {
	if defaultLimit <= 0 {
		defaultLimit = config.DefaultSearchLimit
	}
	if maxBatchItems <= 0 {
		maxBatchItems = config.DefaultMaxBatchItems
	}
	return &HTTPHandler{
		resolver:      resolver,
		logger:        logger,
		defaultLimit:  defaultLimit,
		maxBatchItems: maxBatchItems,
	}
}

type searchResponse struct {
	Success bool                 `json:"success"`
	Query   string               `json:"query"`
	Type    string               `json:"type"`
	Count   int                  `json:"count"`
	Results []domain.MediaRecord `json:"results"`
}

type listResponse struct {
	Success bool                 `json:"success"`
	Type    string               `json:"type"`
	Count   int                  `json:"count"`
	Results []domain.MediaRecord `json:"results"`
}

type mediaResponse struct {
	Success bool                `json:"success"`
	Media   *domain.MediaRecord `json:"media"`
}

type batchRequest struct {
	Items []service.BatchItem `json:"items"`
}

type batchResponse struct {
	Success bool                      `json:"success"`
	Results []service.BatchItemResult `json:"results"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Search handles GET /api/media/search?q=&type=&limit=
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		h.writeError(w, r, errors.BadRequest("query parameter q is required"))
		return
	}
	mediaType, ok := domain.ParseType(q.Get("type"))
	if !ok {
		h.writeError(w, r, errors.BadRequestf("invalid type %q", q.Get("type")))
		return
	}
	limit, err := h.parseLimit(q.Get("limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.resolver.Search(r.Context(), query, mediaType, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Query:   query,
		Type:    mediaType.KeyPart(),
		Count:   len(results),
		Results: nonNil(results),
	})
}

// Get handles GET /api/media/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, errors.BadRequest("invalid media id"))
		return
	}

	rec, err := h.resolver.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mediaResponse{Success: true, Media: rec})
}

// BatchSearch handles POST /api/media/batch-search
func (h *HTTPHandler) BatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, errors.BadRequest("invalid request body"))
		return
	}
	switch {
	case len(req.Items) == 0:
		h.writeError(w, r, errors.BadRequest("items are required"))
		return
	case len(req.Items) > h.maxBatchItems:
		h.writeError(w, r, errors.BadRequestf("at most %d items per batch", h.maxBatchItems))
		return
	}

	results := h.resolver.BatchSearch(r.Context(), req.Items)
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: results})
}

// Trending handles GET /api/media/trending?type=&limit=
func (h *HTTPHandler) Trending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mediaType, ok := domain.ParseType(q.Get("type"))
	if !ok {
		h.writeError(w, r, errors.BadRequestf("invalid type %q", q.Get("type")))
		return
	}
	limit, err := h.parseLimit(q.Get("limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.resolver.Trending(r.Context(), mediaType, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Type:    mediaType.KeyPart(),
		Count:   len(results),
		Results: nonNil(results),
	})
}

// Health handles GET /health
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready
func (h *HTTPHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Ready(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warn("Readiness check failed", interfaces.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HTTPHandler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequestf("limit must be a number, got %q", raw)
	}
	if maxLimit := h.resolver.MaxLimit(); limit < 1 || limit > maxLimit {
		return 0, errors.BadRequestf("limit must be between 1 and %d", maxLimit)
	}
	return limit, nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", interfaces.Error(err))
	}
	writeJSON(w, status, errorResponse{Success: false, Error: errors.Message(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(records []domain.MediaRecord) []domain.MediaRecord {
	if records == nil {
		return []domain.MediaRecord{}
	}
	return records
}
