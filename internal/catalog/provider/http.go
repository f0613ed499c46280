package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// StatusError reports a non-200 upstream response.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.Provider, e.Code)
}

// IsTransient reports whether err is worth one more attempt: HTTP 429, any
// 5xx, or a network failure that is not the caller's own cancellation.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// client is the JSON-over-HTTP plumbing shared by every adapter.
type client struct {
	name       string
	http       *http.Client
	retries    uint
	retryDelay time.Duration
	logger     interfaces.Logger

	// before runs ahead of every attempt; Jikan uses it for its fixed delay.
	before func(ctx context.Context) error
}

func newClient(name string, opts Options) *client {
	return &client{
		name:       name,
		http:       opts.HTTPClient,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger.WithFields(interfaces.String("provider", name)),
	}
}

func (c *client) getJSON(ctx context.Context, url string, out interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

func (c *client) postJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

func (c *client) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	return retry.Do(
		func() error {
			if c.before != nil {
				if err := c.before(ctx); err != nil {
					return err
				}
			}
			return c.once(ctx, method, url, body, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Retrying provider request",
				interfaces.Int("attempt", int(n)+1),
				interfaces.Error(err))
		}),
	)
}

func (c *client) once(ctx context.Context, method, url string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: executing request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Provider: c.name, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", c.name, err)
	}
	return nil
}

// compactJSON strips insignificant whitespace so stored payloads are stable.
func compactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return buf.Bytes()
}

// waitDelay blocks for d or until ctx is done.
func waitDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
