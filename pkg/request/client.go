package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"castlemap/pkg/cache"
	"castlemap/pkg/tracker"
	"castlemap/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("europe-castles/%s (contact: data@europe-castles.example)", version.Version)

// ErrHTTPStatus is wrapped by every error caused by a non-2xx response.
var ErrHTTPStatus = errors.New("unexpected http status")

// ClientConfig holds the transport settings of a Client.
type ClientConfig struct {
	UserAgent string
	Retries   int           // Extra attempts after a 429/5xx/network failure; 0 = fail fast
	BaseDelay time.Duration // First backoff delay, doubled per attempt
}

// Client executes HTTP requests one at a time, with optional caching and
// per-provider tracking. Timeouts come from the caller's context.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	cfg        ClientConfig
	Logger     *slog.Logger

	mu sync.Mutex // Serializes requests
}

// New creates a new Client. A nil cache disables caching.
func New(c cache.Cacher, t *tracker.Tracker, cfg ClientConfig) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{},
		cache:      c,
		tracker:    t,
		cfg:        cfg,
		Logger:     slog.Default(),
	}
}

// Get performs a GET request, caching the body under cacheKey if it is not empty.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, headers, cacheKey)
}

// PostForm performs a form-encoded POST request with optional caching.
func (c *Client) PostForm(ctx context.Context, u string, form url.Values, cacheKey string) ([]byte, error) {
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	return c.do(ctx, http.MethodPost, u, []byte(form.Encode()), headers, cacheKey)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string, cacheKey string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			c.Logger.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		c.Logger.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	respBody, err := c.executeWithBackoff(ctx, method, parsedURL, body, headers)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		return nil, err
	}
	c.tracker.TrackAPISuccess(provider, len(respBody))

	if cacheKey != "" {
		if err := c.cache.SetCache(ctx, cacheKey, respBody); err != nil {
			c.Logger.Error("Failed to cache response", "url", parsedURL.Redacted(), "error", err)
		}
	}
	return respBody, nil
}

// executeWithBackoff runs the request, retrying 429/5xx and transport
// errors up to cfg.Retries extra times with exponential backoff.
func (c *Client) executeWithBackoff(ctx context.Context, method string, u *url.URL, body []byte, headers map[string]string) ([]byte, error) {
	maxAttempts := c.cfg.Retries + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.cfg.BaseDelay
			select {
			case <-time.After(sleepDur):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := c.newRequest(ctx, method, u, body, headers)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		c.Logger.Debug("Network Request", "method", method, "host", u.Host, "path", u.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.Logger.Warn("Request failed", "url", u.Redacted(), "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.Logger.Info("Response", "method", method, "host", u.Host, "status", resp.StatusCode,
			"bytes", len(respBody), "duration", time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, u.Host)
			c.Logger.Warn("API Backoff", "status", resp.StatusCode, "url", u.Redacted(), "attempt", attempt+1)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, u.Host)
		}
		if readErr != nil {
			return nil, fmt.Errorf("read error: %w", readErr)
		}
		return respBody, nil
	}

	if maxAttempts > 1 {
		return nil, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
	}
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body []byte, headers map[string]string) (*http.Request, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// normalizeProvider groups hosts into the names used for tracking.
func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	switch {
	case host == "commons.wikimedia.org":
		return "commons"
	case strings.HasSuffix(host, ".wikidata.org") || host == "wikidata.org":
		return "wikidata"
	case strings.Contains(host, "overpass"):
		return "overpass"
	}
	return host
}
