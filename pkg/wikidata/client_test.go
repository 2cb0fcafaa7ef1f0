package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlemap/pkg/config"
	"castlemap/pkg/model"
	"castlemap/pkg/request"
	"castlemap/pkg/tracker"
)

func newTestClient(endpoint string) *Client {
	cfg := config.DefaultConfig().Wikidata
	cfg.Endpoint = endpoint
	cfg.PageDelay = 0

	reqClient := request.New(nil, tracker.New(), request.ClientConfig{})
	return NewClient(reqClient, &cfg, slog.Default())
}

// bindingsJSON renders n result rows starting at entity number first.
func bindingsJSON(first, n int) string {
	rows := make([]map[string]map[string]string, 0, n)
	for i := first; i < first+n; i++ {
		rows = append(rows, map[string]map[string]string{
			"item":      {"type": "uri", "value": fmt.Sprintf("http://www.wikidata.org/entity/Q%d", i)},
			"itemLabel": {"type": "literal", "value": fmt.Sprintf("Castle %d", i)},
			"coord":     {"type": "literal", "value": "Point(13.4 52.5)"},
		})
	}
	out, _ := json.Marshal(map[string]any{"results": map[string]any{"bindings": rows}})
	return string(out)
}

func TestFetchCastles_Paging(t *testing.T) {
	pages := []int{5000, 5000, 0}
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if !assert.Less(t, n, len(pages), "unexpected extra request") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Contains(t, q.Get("query"), fmt.Sprintf("LIMIT 5000 OFFSET %d", n*5000))

		fmt.Fprint(w, bindingsJSON(n*5000, pages[n]))
	}))
	defer server.Close()

	castles, err := newTestClient(server.URL).FetchCastles(context.Background())
	require.NoError(t, err)
	assert.Len(t, castles, 10000)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "Q0", castles[0].ID)
	assert.Equal(t, "Q9999", castles[9999].ID)
}

func TestFetchCastles_StopsAtCap(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		fmt.Fprint(w, bindingsJSON(n*5000, 5000))
	}))
	defer server.Close()

	castles, err := newTestClient(server.URL).FetchCastles(context.Background())
	require.NoError(t, err)
	assert.Len(t, castles, 25000)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "offset cap of 25000 must stop paging")
}

func TestFetchCastles_ErrorAborts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, bindingsJSON(0, 5000))
	}))
	defer server.Close()

	castles, err := newTestClient(server.URL).FetchCastles(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, request.ErrHTTPStatus)
	assert.Nil(t, castles, "no partial output on failure")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchPage_Parsing(t *testing.T) {
	mockResp := `{
		"results": {
			"bindings": [
				{
					"item": {"value": "http://www.wikidata.org/entity/Q1"},
					"itemLabel": {"value": "Burg Eltz"},
					"coord": {"value": "Point(7.336111 50.205556)"},
					"countryCode": {"value": "DE"},
					"image": {"value": "http://commons.wikimedia.org/wiki/Special:FilePath/Burg%20Eltz.jpg"},
					"styleLabel": {"value": "Romanesque architecture"}
				},
				{
					"item": {"value": "http://www.wikidata.org/entity/Q2"},
					"itemLabel": {"value": "Bare Castle"},
					"coord": {"value": "Point(-3.2 55.9)"}
				},
				{
					"item": {"value": "http://www.wikidata.org/entity/Q3"},
					"itemLabel": {"value": "Broken"},
					"coord": {"value": "garbage"}
				}
			]
		}
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "europe-castles/"))
		fmt.Fprint(w, mockResp)
	}))
	defer server.Close()

	castles, bindings, err := newTestClient(server.URL).FetchPage(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, bindings)
	require.Len(t, castles, 2)

	assert.Equal(t, model.WikidataCastle{
		ID:       "Q1",
		Name:     "Burg Eltz",
		Country:  "DE",
		Coords:   model.Coords{Lat: 50.205556, Lon: 7.336111},
		Wikidata: "http://www.wikidata.org/entity/Q1",
		Image:    "http://commons.wikimedia.org/wiki/Special:FilePath/Burg%20Eltz.jpg",
		Style:    "Romanesque architecture",
	}, castles[0])

	// Optional fields stay empty
	assert.Equal(t, "Q2", castles[1].ID)
	assert.Empty(t, castles[1].Country)
	assert.Empty(t, castles[1].Image)
	assert.Empty(t, castles[1].Style)
}

func TestFetchPage_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{invalid json}`)
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).FetchPage(context.Background(), 10, 0)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name    string
		wkt     string
		want    model.Coords
		wantErr bool
	}{
		{"LonFirst", "Point(13.4 52.5)", model.Coords{Lat: 52.5, Lon: 13.4}, false},
		{"Negative", "Point(-8.61 41.15)", model.Coords{Lat: 41.15, Lon: -8.61}, false},
		{"GlobePrefix", "<http://www.wikidata.org/entity/Q2> Point(2.35 48.85)", model.Coords{Lat: 48.85, Lon: 2.35}, false},
		{"NoPoint", "LINESTRING(1 2, 3 4)", model.Coords{}, true},
		{"OneNumber", "Point(1.0)", model.Coords{}, true},
		{"NotNumbers", "Point(a b)", model.Coords{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePoint(tt.wkt)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCoordinate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCastleQuery(t *testing.T) {
	q := buildCastleQuery(config.DefaultConfig().Wikidata.Bounds, "en,de", 5000, 10000)

	assert.Contains(t, q, "wd:Q23413")
	assert.Contains(t, q, `wikibase:language "en,de"`)
	assert.Contains(t, q, "?lat > 35 && ?lat < 70 && ?lon > -10 && ?lon < 40")
	assert.True(t, strings.HasSuffix(q, "\nLIMIT 5000 OFFSET 10000"))
}
