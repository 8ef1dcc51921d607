// Package httpx is the shared HTTP plumbing of the REST-based vendor
// adapters: JSON decoding, retry with exponential backoff on transient
// failures, and an optional TTL response cache so re-runs within the
// cache window do not hammer provider APIs.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/skucrawler/skucrawler/internal/util"
)

// Options tune a Client.
type Options struct {
	Timeout      time.Duration // per-attempt timeout; default 30s
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxRetries   uint64 // retry attempts on transient errors; default 3
	Log          *slog.Logger
}

// Client wraps http.Client with retry and caching. Safe for concurrent
// use by adapter worker goroutines.
type Client struct {
	hc      *http.Client
	cache   *gocache.Cache
	retries uint64
	log     *slog.Logger
}

// New builds a client. The cache is in-memory and keyed by the canonical
// JSON hash of (method, url, headers), so identical calls within the TTL
// are served locally.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	c := &Client{
		hc:      &http.Client{Timeout: opts.Timeout},
		retries: opts.MaxRetries,
		log:     opts.Log,
	}
	if opts.CacheEnabled {
		c.cache = gocache.New(opts.CacheTTL, opts.CacheTTL)
	}
	return c
}

// transientError marks a response worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Get fetches a URL with the given headers and returns the body.
// 429 and 5xx responses and network errors are retried with exponential
// backoff; other non-2xx statuses fail immediately.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	key, err := util.JSONHash("GET", url, headers)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached.([]byte), nil
		}
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return &transientError{err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &transientError{err}
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &transientError{fmt.Errorf("GET %s: status %d", url, resp.StatusCode)}
		default:
			return backoff.Permanent(fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, truncate(data, 200)))
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Warn("retrying provider API call", "url", url, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, body, gocache.DefaultExpiration)
	}
	return body, nil
}

// GetJSON fetches a URL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", url, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
