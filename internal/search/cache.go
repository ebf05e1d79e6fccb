package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamdex/streamdex/internal/catalog"
)

const (
	// DefaultCacheTTL bounds how stale a repeated search may be.
	DefaultCacheTTL = 60 * time.Second
	// DefaultCacheEntries caps the cache at the most recent searches.
	DefaultCacheEntries = 20
)

// Cache is a bounded, time-boxed result cache keyed by (tenant, normalized
// query, category, page, pageSize). It is constructed explicitly and owned by
// one Engine so tests get isolated instances; it is never a package global.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	gens    map[string]uint64
	max     int
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheEntry struct {
	tenant   string
	res      catalog.PageResult
	storedAt time.Time
}

// NewCache returns a cache holding up to max entries for ttl each. Zero
// values select the defaults.
func NewCache(max int, ttl time.Duration) *Cache {
	if max <= 0 {
		max = DefaultCacheEntries
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		gens:    make(map[string]uint64),
		max:     max,
		ttl:     ttl,
		now:     time.Now,
	}
}

// generation returns the tenant's invalidation generation. A caller that
// computes a result snapshots the generation first and hands it back to put,
// which drops the write if an invalidation landed in between.
func (c *Cache) generation(tenant string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tenant]
}

func (c *Cache) get(key string) (catalog.PageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		if ok {
			delete(c.entries, key)
		}
		c.misses.Add(1)
		return catalog.PageResult{}, false
	}
	c.hits.Add(1)
	return e.res, true
}

func (c *Cache) put(key, tenant string, gen uint64, res catalog.PageResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[tenant] != gen {
		// The tenant's catalog changed while this result was being computed.
		return
	}
	c.entries[key] = &cacheEntry{tenant: tenant, res: res, storedAt: c.now()}
	for len(c.entries) > c.max {
		oldestKey := ""
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldestAt) {
				oldestKey, oldestAt = k, e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// InvalidateTenant drops every cached result for the tenant. Called whenever
// the tenant's catalog is replaced or deleted.
func (c *Cache) InvalidateTenant(tenant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[tenant]++
	for k, e := range c.entries {
		if e.tenant == tenant {
			delete(c.entries, k)
		}
	}
}

// Stats returns cumulative hit/miss counters, e.g. for a metrics gauge.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
