package provider_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/provider"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

// stubServer serves handler and counts every request it receives.
func stubServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testOptions(baseURL, apiKey string) provider.Options {
	return provider.Options{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Timeout:    2 * time.Second,
		Retries:    1,
		RetryDelay: time.Millisecond,
		Logger:     logger.NewNoop(),
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}
