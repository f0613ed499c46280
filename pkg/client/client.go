// Package client talks to a running resolver. Besides the plain HTTP client
// it carries the two image fillers a UI needs: a rate limited single-item
// FetchQueue and a wave based BatchFetcher, both backed by one ImageCache.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

const (
	searchPath = "/api/media/search"
	mediaPath  = "/api/media/"
	batchPath  = "/api/media/batch-search"

	maxErrorBody = 4 << 10
)

// Item is one title the client wants an image for. Type accepts UI labels
// such as "K-Drama" or "Anime".
type Item struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// BatchMatch is the server's answer for one Item.
type BatchMatch struct {
	ID     int64               `json:"id"`
	Found  bool                `json:"found"`
	Data   *domain.MediaRecord `json:"data,omitempty"`
	Source string              `json:"source"`
}

// APIError is a non-2xx answer from the resolver.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resolver returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the resolver HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient uses one with a
// 60 second timeout; per-call deadlines come from ctx.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// Search calls GET /api/media/search.
func (c *Client) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	if mediaType != domain.TypeAll {
		params.Set("type", string(mediaType))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Results []domain.MediaRecord `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, searchPath+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Get calls GET /api/media/{id}.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*domain.MediaRecord, error) {
	var resp struct {
		Media *domain.MediaRecord `json:"media"`
	}
	if err := c.do(ctx, http.MethodGet, mediaPath+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Media, nil
}

// BatchSearch calls POST /api/media/batch-search.
func (c *Client) BatchSearch(ctx context.Context, items []Item) ([]BatchMatch, error) {
	body, err := json.Marshal(struct {
		Items []Item `json:"items"`
	}{Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	var resp struct {
		Results []BatchMatch `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, batchPath, body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
