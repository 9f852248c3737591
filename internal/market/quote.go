// Package market provides the quote cache, the market-data provider client,
// and the batch quote fetcher that ties them together.
package market

import (
	"context"
	"time"
)

// Sentinel defaults applied at the ingestion boundary so that no missing
// provider field ever crosses into valuation or risk arithmetic.
const (
	// SectorUnknown is used when the provider omits an industry classification
	SectorUnknown = "Unknown"
	// DefaultCurrency is used when the provider omits a currency
	DefaultCurrency = "USD"
)

// Quote is the canonical snapshot of a traded instrument. It is produced
// only by the fetcher and never mutated in place; a refreshed quote replaces
// the prior entry wholesale.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	CompanyName   string    `json:"companyName"`
	Sector        string    `json:"sector"`
	Currency      string    `json:"currency"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// ProviderQuote is the raw price payload returned by the provider.
type ProviderQuote struct {
	Price         float64
	Change        float64
	ChangePercent float64
	High          float64
	Low           float64
	Open          float64
	PreviousClose float64
}

// ProviderProfile is the raw descriptive payload returned by the provider.
// Any field may be empty.
type ProviderProfile struct {
	Name     string
	Industry string
	Currency string
}

// Provider is the external market-data capability. Profile is secondary:
// its failure never fails a quote, it only falls back to defaults.
type Provider interface {
	Configured() bool
	Quote(ctx context.Context, symbol string) (*ProviderQuote, error)
	Profile(ctx context.Context, symbol string) (*ProviderProfile, error)
}

// normalizeQuote maps raw provider payloads into a canonical Quote,
// applying the documented sentinels for absent profile fields.
func normalizeQuote(symbol string, raw *ProviderQuote, profile *ProviderProfile, fetchedAt time.Time) Quote {
	q := Quote{
		Symbol:        symbol,
		Price:         raw.Price,
		Change:        raw.Change,
		ChangePercent: raw.ChangePercent,
		High:          raw.High,
		Low:           raw.Low,
		Open:          raw.Open,
		PreviousClose: raw.PreviousClose,
		CompanyName:   symbol,
		Sector:        SectorUnknown,
		Currency:      DefaultCurrency,
		FetchedAt:     fetchedAt,
	}

	if profile != nil {
		if profile.Name != "" {
			q.CompanyName = profile.Name
		}
		if profile.Industry != "" {
			q.Sector = profile.Industry
		}
		if profile.Currency != "" {
			q.Currency = profile.Currency
		}
	}

	return q
}
