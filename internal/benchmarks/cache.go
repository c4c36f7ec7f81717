package benchmarks

import (
	"context"
	"strings"
	"sync"
	"time"

	"carbon-scribe/dairy-footprint/internal/factors"
)

// CachedRepository memoizes another repository per requested region for ttl.
// Errors are never cached.
type CachedRepository struct {
	next BenchmarkRepository
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    int64
	misses  int64
}

type cacheEntry struct {
	value      []*Benchmark
	expiration time.Time
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCachedRepository wraps next. A non-positive ttl caches forever.
func NewCachedRepository(next BenchmarkRepository, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// GetBenchmarks returns cached datasets for the region, loading them on a miss
func (c *CachedRepository) GetBenchmarks(ctx context.Context, region string) ([]*Benchmark, error) {
	key := strings.ToLower(strings.TrimSpace(region))
	if key == "" {
		key = factors.DefaultRegion
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && (c.ttl <= 0 || c.now().Before(entry.expiration)) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.value, nil
	}

	value, err := c.next.GetBenchmarks(ctx, region)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	c.entries[key] = cacheEntry{value: value, expiration: c.now().Add(c.ttl)}
	return value, nil
}

// Invalidate drops every cached region
func (c *CachedRepository) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Stats returns hit and miss counters
func (c *CachedRepository) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := CacheStats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
