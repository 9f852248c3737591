package market

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for cache tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testQuote(symbol string, price float64) Quote {
	return Quote{
		Symbol:   symbol,
		Price:    price,
		Sector:   "Technology",
		Currency: DefaultCurrency,
	}
}

func TestQuoteCache_PutGet(t *testing.T) {
	clock := newFakeClock()
	cache := NewQuoteCache(QuoteCacheConfig{Clock: clock.Now})

	cache.Put("AAPL", testQuote("AAPL", 175.05))

	got, ok := cache.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 175.05, got.Price)
	assert.Equal(t, "AAPL", got.Symbol)
}

func TestQuoteCache_MissWhenAbsent(t *testing.T) {
	cache := NewQuoteCache(QuoteCacheConfig{})

	_, ok := cache.Get("MSFT")
	assert.False(t, ok)
}

func TestQuoteCache_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	ttl := 300000 * time.Millisecond
	cache := NewQuoteCache(QuoteCacheConfig{TTL: ttl, Clock: clock.Now})

	cache.Put("AAPL", testQuote("AAPL", 175.05))

	clock.Advance(299999 * time.Millisecond)
	_, ok := cache.Get("AAPL")
	assert.True(t, ok, "entry should be live just before the TTL")

	clock.Advance(2 * time.Millisecond)
	_, ok = cache.Get("AAPL")
	assert.False(t, ok, "entry should be gone just after the TTL")

	// The stale entry was evicted as a side effect of the miss.
	assert.Equal(t, 0, cache.Len())
}

func TestQuoteCache_PutReplacesWholesale(t *testing.T) {
	clock := newFakeClock()
	cache := NewQuoteCache(QuoteCacheConfig{Clock: clock.Now})

	first := testQuote("AAPL", 170.00)
	first.Sector = "Consumer Electronics"
	cache.Put("AAPL", first)

	second := testQuote("AAPL", 175.05)
	cache.Put("AAPL", second)

	got, ok := cache.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 175.05, got.Price)
	assert.Equal(t, "Technology", got.Sector)
	assert.Equal(t, 1, cache.Len())
}

func TestQuoteCache_SizeBoundEvictsOldestFirst(t *testing.T) {
	clock := newFakeClock()
	cache := NewQuoteCache(QuoteCacheConfig{MaxEntries: 3, Clock: clock.Now})

	for i := 0; i < 5; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		cache.Put(symbol, testQuote(symbol, float64(i)))
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, cache.Len())

	// Oldest two were evicted; the most recently cached survive.
	for i := 0; i < 2; i++ {
		_, ok := cache.Get(fmt.Sprintf("SYM%d", i))
		assert.False(t, ok, "SYM%d should have been evicted", i)
	}
	for i := 2; i < 5; i++ {
		_, ok := cache.Get(fmt.Sprintf("SYM%d", i))
		assert.True(t, ok, "SYM%d should still be cached", i)
	}
}

func TestQuoteCache_SizeBoundNeverExceeded(t *testing.T) {
	clock := newFakeClock()
	cache := NewQuoteCache(QuoteCacheConfig{MaxEntries: 10, Clock: clock.Now})

	for i := 0; i < 100; i++ {
		cache.Put(fmt.Sprintf("SYM%d", i), testQuote("X", 1))
		assert.LessOrEqual(t, cache.Len(), 10)
		clock.Advance(time.Millisecond)
	}
}

func TestQuoteCache_CleanupDropsExpiredOnPut(t *testing.T) {
	clock := newFakeClock()
	cache := NewQuoteCache(QuoteCacheConfig{TTL: time.Minute, Clock: clock.Now})

	cache.Put("OLD1", testQuote("OLD1", 1))
	cache.Put("OLD2", testQuote("OLD2", 2))
	clock.Advance(2 * time.Minute)

	cache.Put("NEW", testQuote("NEW", 3))

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("NEW")
	assert.True(t, ok)
}

func TestQuoteCache_Stats(t *testing.T) {
	cache := NewQuoteCache(QuoteCacheConfig{})

	cache.Put("AAPL", testQuote("AAPL", 175.05))
	cache.Get("AAPL")
	cache.Get("MSFT")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestQuoteCache_ConcurrentAccess(t *testing.T) {
	cache := NewQuoteCache(QuoteCacheConfig{MaxEntries: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				symbol := fmt.Sprintf("SYM%d", (n+j)%60)
				cache.Put(symbol, testQuote(symbol, float64(j)))
				cache.Get(symbol)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 50)
}
