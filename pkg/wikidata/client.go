package wikidata

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"castlemap/pkg/config"
	"castlemap/pkg/model"
	"castlemap/pkg/request"
)

// Client pages through the castle SPARQL query.
type Client struct {
	request        *request.Client
	SPARQLEndpoint string
	PageSize       int
	MaxRows        int
	PageDelay      time.Duration
	Timeout        time.Duration
	Languages      string
	Bounds         config.Bounds
	Logger         *slog.Logger

	// CacheResponses stores each page in the request cache.
	CacheResponses bool
}

// NewClient creates a new Wikidata client.
func NewClient(r *request.Client, cfg *config.WikidataConfig, logger *slog.Logger) *Client {
	return &Client{
		request:        r,
		SPARQLEndpoint: cfg.Endpoint,
		PageSize:       cfg.PageSize,
		MaxRows:        cfg.MaxRows,
		PageDelay:      cfg.PageDelay.Std(),
		Timeout:        cfg.Timeout.Std(),
		Languages:      cfg.Languages,
		Bounds:         cfg.Bounds,
		Logger:         logger,
	}
}

// FetchCastles pages through the query until a page comes back empty or
// the offset reaches MaxRows. It pauses PageDelay after every non-empty
// page. Any failed page aborts the whole fetch.
func (c *Client) FetchCastles(ctx context.Context) ([]model.WikidataCastle, error) {
	var rows []model.WikidataCastle
	offset := 0

	for {
		chunk, bindings, err := c.FetchPage(ctx, c.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("page at offset %d: %w", offset, err)
		}
		if bindings == 0 {
			break
		}

		rows = append(rows, chunk...)
		offset += c.PageSize
		c.Logger.Info("Fetched rows", "total", len(rows), "offset", offset)

		if err := sleep(ctx, c.PageDelay); err != nil {
			return nil, err
		}
		if offset >= c.MaxRows {
			break
		}
	}

	return rows, nil
}

// FetchPage runs the query with the given LIMIT/OFFSET window. It returns the
// parsed castles and the number of raw result rows; rows with an unusable
// coordinate are skipped, so the two can differ.
func (c *Client) FetchPage(ctx context.Context, limit, offset int) (castles []model.WikidataCastle, bindings int, err error) {
	query := buildCastleQuery(c.Bounds, c.Languages, limit, offset)

	u, err := url.Parse(c.SPARQLEndpoint)
	if err != nil {
		return nil, 0, err
	}
	q := u.Query()
	q.Add("query", query)
	q.Add("format", "json")
	u.RawQuery = q.Encode()

	headers := map[string]string{
		"Accept": "application/sparql-results+json",
	}

	cacheKey := ""
	if c.CacheResponses {
		hash := md5.Sum([]byte(query))
		cacheKey = "wd_castles_" + hex.EncodeToString(hash[:])
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body, err := c.request.GetWithHeaders(ctx, u.String(), headers, cacheKey)
	if err != nil {
		return nil, 0, err
	}

	var result sparqlResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return c.parseBindings(result), len(result.Results.Bindings), nil
}

// -- Internal parsing structs --

type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *Client) parseBindings(resp sparqlResponse) []model.WikidataCastle {
	castles := make([]model.WikidataCastle, 0, len(resp.Results.Bindings))

	for _, b := range resp.Results.Bindings {
		itemURI := val(b, "item")
		qid := itemURI[strings.LastIndex(itemURI, "/")+1:]
		if qid == "" {
			continue
		}

		coords, err := ParsePoint(val(b, "coord"))
		if err != nil {
			c.Logger.Warn("Skipping row", "qid", qid, "error", err)
			continue
		}

		castles = append(castles, model.WikidataCastle{
			ID:       qid,
			Name:     val(b, "itemLabel"),
			Country:  val(b, "countryCode"),
			Coords:   coords,
			Wikidata: itemURI,
			Image:    val(b, "image"),
			Style:    val(b, "styleLabel"),
		})
	}
	return castles
}

// ParsePoint reads a WKT literal "Point(lon lat)". WKT puts longitude
// first, so the first number is Lon and the second is Lat.
func ParsePoint(wkt string) (model.Coords, error) {
	_, rest, found := strings.Cut(wkt, "Point(")
	if !found {
		return model.Coords{}, fmt.Errorf("%w: no point in %q", ErrCoordinate, wkt)
	}
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(rest), ")"))
	if len(fields) != 2 {
		return model.Coords{}, fmt.Errorf("%w: expected 2 numbers in %q", ErrCoordinate, wkt)
	}

	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.Coords{}, fmt.Errorf("%w: %v", ErrCoordinate, err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return model.Coords{}, fmt.Errorf("%w: %v", ErrCoordinate, err)
	}
	return model.Coords{Lat: lat, Lon: lon}, nil
}

func val(binding map[string]sparqlValue, key string) string {
	if v, ok := binding[key]; ok {
		return v.Value
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
