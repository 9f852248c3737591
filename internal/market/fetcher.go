package market

import (
	"context"
	"sync"
	"time"

	"github.com/folio-share/internal/logging"
	"github.com/folio-share/internal/types"
)

// Result holds the outcome of fetching one symbol. Exactly one of Quote
// and Err is set.
type Result struct {
	Quote *Quote
	Err   error
}

// Archiver receives every fresh provider fetch. Archiving is best-effort
// and must never fail a fetch.
type Archiver interface {
	Append(ctx context.Context, quote Quote) error
}

// Fetcher resolves batches of symbols against the quote cache, falling back
// to the provider for misses and writing fresh quotes back into the cache.
type Fetcher struct {
	cache    *QuoteCache
	provider Provider
	archiver Archiver
	clock    func() time.Time
}

// NewFetcher creates a quote fetcher. archiver may be nil.
func NewFetcher(cache *QuoteCache, provider Provider, archiver Archiver) *Fetcher {
	return &Fetcher{
		cache:    cache,
		provider: provider,
		archiver: archiver,
		clock:    time.Now,
	}
}

// FetchQuotes resolves every distinct symbol in the input to either a quote
// or a per-symbol error. The result key set exactly equals the distinct
// input set. Cache misses fan out to the provider concurrently; one failing
// symbol never aborts its siblings. A missing API key fails the whole batch
// before any request is attempted.
func (f *Fetcher) FetchQuotes(ctx context.Context, symbols []string) (map[string]Result, error) {
	if !f.provider.Configured() {
		return nil, types.NewServiceError(types.ErrCodeConfiguration, "market data API key not configured")
	}

	distinct := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		distinct = append(distinct, symbol)
	}

	results := make(map[string]Result, len(distinct))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, symbol := range distinct {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			result := f.fetchOne(ctx, symbol)
			mu.Lock()
			results[symbol] = result
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return results, nil
}

// fetchOne runs the cache-check → provider-call → cache-write sequence for
// a single symbol.
func (f *Fetcher) fetchOne(ctx context.Context, symbol string) Result {
	logger := logging.FromContext(ctx).WithField("symbol", symbol)

	if quote, ok := f.cache.Get(symbol); ok {
		logger.Debug("Quote cache hit")
		return Result{Quote: &quote}
	}

	logger.Debug("Quote cache miss")

	raw, err := f.provider.Quote(ctx, symbol)
	if err != nil {
		logger.WithError(err).Warn("Quote fetch failed")
		return Result{Err: &types.ServiceError{
			Code:    types.ErrCodeQuoteFetchFailed,
			Message: "failed to fetch quote data",
			Details: map[string]interface{}{"symbol": symbol},
		}}
	}

	// Profile is best-effort; failure falls back to the documented defaults.
	profile, err := f.provider.Profile(ctx, symbol)
	if err != nil {
		logger.WithError(err).Debug("Profile fetch failed, using defaults")
		profile = nil
	}

	quote := normalizeQuote(symbol, raw, profile, f.clock())
	f.cache.Put(symbol, quote)

	if f.archiver != nil {
		if err := f.archiver.Append(ctx, quote); err != nil {
			logger.WithError(err).Warn("Failed to archive quote")
		}
	}

	return Result{Quote: &quote}
}
