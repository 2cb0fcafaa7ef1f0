package tracker

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Tracker counts API traffic per provider (wikidata, overpass, commons).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds the counters for one provider.
// Fields are accessed atomically.
type ProviderStats struct {
	CacheHits   int64
	CacheMisses int64
	APISuccess  int64
	APIFailures int64
	BytesRead   int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

// TrackAPISuccess records a 2xx response and the size of its body.
func (t *Tracker) TrackAPISuccess(provider string, bytes int) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.APISuccess, 1)
	atomic.AddInt64(&s.BytesRead, int64(bytes))
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = ProviderStats{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			BytesRead:   atomic.LoadInt64(&v.BytesRead),
		}
	}
	return result
}

// LogSummary writes one line per provider, in name order.
func (t *Tracker) LogSummary(logger *slog.Logger) {
	snap := t.Snapshot()
	providers := make([]string, 0, len(snap))
	for p := range snap {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	for _, p := range providers {
		s := snap[p]
		logger.Info("API usage",
			"provider", p,
			"success", s.APISuccess,
			"failures", s.APIFailures,
			"cache_hits", s.CacheHits,
			"cache_misses", s.CacheMisses,
			"bytes", s.BytesRead,
		)
	}
}
