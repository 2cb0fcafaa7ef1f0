package overpass

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"net/url"
	"time"

	"castlemap/pkg/config"
	"castlemap/pkg/request"
)

// Client runs the castle query against an Overpass interpreter.
type Client struct {
	request      *request.Client
	Endpoint     string
	Area         string
	QueryTimeout time.Duration
	Timeout      time.Duration
	Logger       *slog.Logger

	// CacheResponses stores the response in the request cache.
	CacheResponses bool
}

// NewClient creates a new Overpass client.
func NewClient(r *request.Client, cfg *config.OverpassConfig, logger *slog.Logger) *Client {
	return &Client{
		request:      r,
		Endpoint:     cfg.Endpoint,
		Area:         cfg.Area,
		QueryTimeout: cfg.QueryTimeout.Std(),
		Timeout:      cfg.Timeout.Std(),
		Logger:       logger,
	}
}

// Fetch posts the query once and returns the raw response body. The body is
// validated as JSON but otherwise untouched.
func (c *Client) Fetch(ctx context.Context) ([]byte, *Response, error) {
	query := buildCastleQuery(c.Area, c.QueryTimeout)

	cacheKey := ""
	if c.CacheResponses {
		hash := md5.Sum([]byte(c.Endpoint + query))
		cacheKey = "osm_castles_" + hex.EncodeToString(hash[:])
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	c.Logger.Info("Querying Overpass", "area", c.Area, "endpoint", c.Endpoint)
	body, err := c.request.PostForm(ctx, c.Endpoint, url.Values{"data": {query}}, cacheKey)
	if err != nil {
		return nil, nil, err
	}

	resp, err := Parse(body)
	if err != nil {
		return nil, nil, err
	}
	c.Logger.Info("Fetched elements", "count", len(resp.Elements))
	return body, resp, nil
}
