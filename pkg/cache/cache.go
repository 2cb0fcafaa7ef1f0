package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"castlemap/pkg/db"
)

// Cacher defines the caching interface used by the request client.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Nop never hits and never stores. It is the default: every run fetches
// fresh data from the sources.
type Nop struct{}

func (Nop) GetCache(ctx context.Context, key string) ([]byte, bool)    { return nil, false }
func (Nop) SetCache(ctx context.Context, key string, val []byte) error { return nil }

// SQLiteCache implements Cacher on top of pkg/db.
// Values are gzip-compressed; entries older than ttl are treated as misses.
type SQLiteCache struct {
	db  *db.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteCache creates a new cache. A zero ttl keeps entries forever.
func NewSQLiteCache(d *db.DB, ttl time.Duration) *SQLiteCache {
	return &SQLiteCache{db: d, ttl: ttl, now: time.Now}
}

func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	var created time.Time
	err := c.db.QueryRowContext(ctx, "SELECT value, created_at FROM cache WHERE key = ?", key).Scan(&val, &created)
	if errors.Is(err, sql.ErrNoRows) || err != nil {
		return nil, false
	}

	if c.ttl > 0 && c.now().Sub(created) > c.ttl {
		return nil, false
	}

	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		if decompressed, err := decompress(val); err == nil {
			return decompressed, true
		}
	}
	return val, true
}

func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	if compressed, err := compress(val); err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err := c.db.ExecContext(ctx, query, key, val, c.now().UTC())
	return err
}

var (
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
