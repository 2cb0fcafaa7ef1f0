package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlemap/pkg/cache"
	"castlemap/pkg/db"
	"castlemap/pkg/tracker"
)

func TestGet_UserAgentAndHeaders(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "europe-castles/test (contact: a@b.c)", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer svr.Close()

	client := New(nil, tracker.New(), ClientConfig{UserAgent: "europe-castles/test (contact: a@b.c)"})
	body, err := client.GetWithHeaders(context.Background(), svr.URL, map[string]string{"Accept": "application/sparql-results+json"}, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestGet_NonSuccessAborts(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"NotFound", http.StatusNotFound},
		{"TooManyRequests", http.StatusTooManyRequests},
		{"ServerError", http.StatusInternalServerError},
		{"NoContentIsFine", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.status)
			}))
			defer svr.Close()

			tr := tracker.New()
			client := New(nil, tr, ClientConfig{})
			_, err := client.Get(context.Background(), svr.URL, "")

			// Default config never retries
			assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))

			if tt.status >= 200 && tt.status < 300 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrHTTPStatus), "error should wrap ErrHTTPStatus: %v", err)
			assert.Equal(t, int64(1), tr.Snapshot()[hostOf(t, svr.URL)].APIFailures)
		})
	}
}

func TestGet_Retry(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer svr.Close()

	client := New(nil, tracker.New(), ClientConfig{Retries: 2, BaseDelay: time.Millisecond})
	body, err := client.Get(context.Background(), svr.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "success", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGet_RetryExhausted(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer svr.Close()

	client := New(nil, tracker.New(), ClientConfig{Retries: 1, BaseDelay: time.Millisecond})
	_, err := client.Get(context.Background(), svr.URL, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestGet_Timeout(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer svr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New(nil, tracker.New(), ClientConfig{})
	_, err := client.Get(ctx, svr.URL, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGet_Cache(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer svr.Close()

	d, err := db.Init(filepath.Join(t.TempDir(), "client_test.db"))
	require.NoError(t, err)
	defer d.Close()

	client := New(cache.NewSQLiteCache(d, 0), tracker.New(), ClientConfig{})
	for i := 0; i < 3; i++ {
		body, err := client.Get(context.Background(), svr.URL, "test_key")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "cached responses must not hit the network")
}

func TestPostForm(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(raw))
		assert.NoError(t, err)
		_, _ = w.Write([]byte(form.Get("data")))
	}))
	defer svr.Close()

	client := New(nil, tracker.New(), ClientConfig{})
	body, err := client.PostForm(context.Background(), svr.URL, url.Values{"data": {"[out:json];"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "[out:json];", string(body))
}

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Host
}
