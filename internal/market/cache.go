package market

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Quote cache defaults; overridable through QuoteCacheConfig.
const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 1000
)

// QuoteCacheConfig configures a QuoteCache. Zero values fall back to the
// defaults above; Clock defaults to time.Now.
type QuoteCacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	Clock      func() time.Time
}

// QuoteCache is a process-local, time-bounded quote store shared by every
// request handler. An entry is eligible for use only while its age is below
// the TTL; the store never grows past MaxEntries. Operations are synchronous,
// never block on I/O, and never return an error: any internal inconsistency
// degrades to a cache miss.
type QuoteCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	maxSize int
	clock   func() time.Time
	seq     uint64

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	quote    Quote
	cachedAt time.Time
	seq      uint64 // insertion order, breaks cachedAt ties during eviction
}

// NewQuoteCache creates a quote cache.
func NewQuoteCache(cfg QuoteCacheConfig) *QuoteCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &QuoteCache{
		entries: make(map[string]*cacheEntry),
		ttl:     cfg.TTL,
		maxSize: cfg.MaxEntries,
		clock:   cfg.Clock,
	}
}

// Get returns the cached quote for a symbol. It reports a miss when no
// entry exists or the entry's age has reached the TTL; a stale entry is
// evicted as a side effect.
func (c *QuoteCache) Get(symbol string) (Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[symbol]
	if !ok {
		c.misses.Add(1)
		return Quote{}, false
	}

	if c.clock().Sub(entry.cachedAt) >= c.ttl {
		delete(c.entries, symbol)
		c.misses.Add(1)
		return Quote{}, false
	}

	c.hits.Add(1)
	return entry.quote, true
}

// Put stores a quote under its symbol, replacing any prior entry wholesale,
// then runs cleanup: expired entries are dropped and, if the store still
// exceeds its size bound, the oldest entries by cachedAt are evicted until
// the bound holds.
func (c *QuoteCache) Put(symbol string, quote Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[symbol] = &cacheEntry{
		quote:    quote,
		cachedAt: c.clock(),
		seq:      c.seq,
	}

	c.cleanupLocked()
}

// cleanupLocked drops expired entries, then enforces the size bound by
// evicting strictly oldest-first. Caller holds the mutex.
func (c *QuoteCache) cleanupLocked() {
	now := c.clock()
	for symbol, entry := range c.entries {
		if now.Sub(entry.cachedAt) >= c.ttl {
			delete(c.entries, symbol)
		}
	}

	if len(c.entries) <= c.maxSize {
		return
	}

	type keyed struct {
		symbol string
		entry  *cacheEntry
	}
	ordered := make([]keyed, 0, len(c.entries))
	for symbol, entry := range c.entries {
		ordered = append(ordered, keyed{symbol, entry})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].entry.cachedAt.Equal(ordered[j].entry.cachedAt) {
			return ordered[i].entry.cachedAt.Before(ordered[j].entry.cachedAt)
		}
		return ordered[i].entry.seq < ordered[j].entry.seq
	})

	for _, k := range ordered[:len(c.entries)-c.maxSize] {
		delete(c.entries, k.symbol)
	}
}

// Len returns the current number of cached entries.
func (c *QuoteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheStats reports cumulative hit/miss counters.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
	Entries int     `json:"entries"`
}

// Stats returns cache statistics.
func (c *QuoteCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
		Entries: c.Len(),
	}
}
