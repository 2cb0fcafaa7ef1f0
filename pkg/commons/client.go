package commons

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"castlemap/pkg/config"
	"castlemap/pkg/model"
	"castlemap/pkg/request"
)

// ErrParse is returned when the API answer is not the expected JSON.
var ErrParse = errors.New("commons: invalid response")

// Client fetches image metadata from the Commons MediaWiki API.
type Client struct {
	request     *request.Client
	APIEndpoint string
	ThumbWidth  int
	Timeout     time.Duration
	Logger      *slog.Logger

	// CacheResponses stores each answer in the request cache.
	CacheResponses bool
}

// NewClient creates a new Commons client.
func NewClient(r *request.Client, cfg *config.CommonsConfig, logger *slog.Logger) *Client {
	return &Client{
		request:     r,
		APIEndpoint: cfg.Endpoint,
		ThumbWidth:  cfg.ThumbWidth,
		Timeout:     cfg.Timeout.Std(),
		Logger:      logger,
	}
}

// FetchAll looks up the image of every castle that has one. Castles whose
// file has no imageinfo are left out of the result. A failed request aborts.
func (c *Client) FetchAll(ctx context.Context, castles []model.WikidataCastle) (map[string]model.Thumbnail, error) {
	result := make(map[string]model.Thumbnail)
	looked := 0

	for i := range castles {
		wc := &castles[i]
		if wc.Image == "" {
			continue
		}
		looked++

		thumb, err := c.FetchThumb(ctx, wc.Image)
		if err != nil {
			return nil, fmt.Errorf("image of %s: %w", wc.ID, err)
		}
		if thumb == nil {
			c.Logger.Debug("No imageinfo", "qid", wc.ID, "image", wc.Image)
			continue
		}
		result[wc.ID] = *thumb

		if looked%100 == 0 {
			c.Logger.Info("Thumbnail progress", "looked_up", looked, "found", len(result))
		}
	}

	c.Logger.Info("Fetched thumbnails", "looked_up", looked, "found", len(result))
	return result, nil
}

// FetchThumb fetches the thumbnail, description page, license and author of
// one file. It returns nil without error when the page has no imageinfo.
func (c *Client) FetchThumb(ctx context.Context, image string) (*model.Thumbnail, error) {
	title := FileTitle(image)

	u, err := url.Parse(c.APIEndpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Add("action", "query")
	q.Add("prop", "imageinfo")
	q.Add("format", "json")
	q.Add("titles", title)
	q.Add("iiprop", "url|extmetadata")
	q.Add("iiurlwidth", strconv.Itoa(c.ThumbWidth))
	u.RawQuery = q.Encode()

	cacheKey := ""
	if c.CacheResponses {
		hash := md5.Sum([]byte(u.String()))
		cacheKey = "commons_" + hex.EncodeToString(hash[:])
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body, err := c.request.Get(ctx, u.String(), cacheKey)
	if err != nil {
		return nil, err
	}

	var apiResp response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	for _, page := range apiResp.Query.Pages {
		if len(page.ImageInfo) == 0 {
			return nil, nil
		}
		info := page.ImageInfo[0]
		credit := metaValue(info.ExtMetadata, "Artist")
		return &model.Thumbnail{
			ThumbURL:   info.ThumbURL,
			PageURL:    info.DescriptionURL,
			License:    metaValue(info.ExtMetadata, "LicenseShortName"),
			Credit:     credit,
			CreditText: CreditText(credit),
		}, nil
	}
	return nil, nil
}

type response struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			ImageInfo []struct {
				ThumbURL       string                     `json:"thumburl"`
				DescriptionURL string                     `json:"descriptionurl"`
				ExtMetadata    map[string]json.RawMessage `json:"extmetadata"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// metaValue reads an extmetadata entry. The API puts the text under
// "value"; older dumps use "*".
func metaValue(meta map[string]json.RawMessage, key string) string {
	raw, ok := meta[key]
	if !ok {
		return ""
	}
	var entry struct {
		Value any `json:"value"`
		Star  any `json:"*"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return ""
	}
	for _, v := range []any{entry.Value, entry.Star} {
		switch s := v.(type) {
		case string:
			return s
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}
