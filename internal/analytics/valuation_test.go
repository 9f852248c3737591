package analytics

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/models"
)

func holding(ticker string, qty float64) models.Holding {
	return models.Holding{Ticker: ticker, Quantity: qty}
}

func quote(symbol string, price, changePercent, previousClose float64, sector string) market.Quote {
	return market.Quote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: changePercent,
		PreviousClose: previousClose,
		Sector:        sector,
	}
}

func findSector(t *testing.T, breakdown []SectorBreakdown, sector string) SectorBreakdown {
	t.Helper()
	for _, b := range breakdown {
		if b.Sector == sector {
			return b
		}
	}
	t.Fatalf("sector %q not found in breakdown %+v", sector, breakdown)
	return SectorBreakdown{}
}

func TestValuate_SingleHoldingWithCash(t *testing.T) {
	holdings := []models.Holding{holding("AAPL", 10)}
	quotes := map[string]market.Quote{
		"AAPL": quote("AAPL", 175.05, 0, 0, "Technology"),
	}

	v := Valuate(holdings, 2500, quotes)

	assert.InDelta(t, 4250.50, v.TotalValue, 1e-9)
	assert.InDelta(t, 1750.50, v.HoldingsValue, 1e-9)

	tech := findSector(t, v.SectorBreakdown, "Technology")
	assert.InDelta(t, 1750.50, tech.Value, 1e-9)
	assert.InDelta(t, 41.18, tech.Percentage, 0.01)

	cash := findSector(t, v.SectorBreakdown, CashSector)
	assert.InDelta(t, 2500, cash.Value, 1e-9)
	assert.InDelta(t, 58.82, cash.Percentage, 0.01)
}

func TestValuate_MissingQuoteContributesZeroUnderUnknown(t *testing.T) {
	holdings := []models.Holding{holding("TSLA", 5)}

	v := Valuate(holdings, 1000, map[string]market.Quote{})

	assert.Equal(t, 1000.0, v.TotalValue)

	unknown := findSector(t, v.SectorBreakdown, market.SectorUnknown)
	assert.Equal(t, 0.0, unknown.Value)
	assert.Equal(t, 0.0, unknown.Percentage)
}

func TestValuate_EmptySectorDefaultsToUnknown(t *testing.T) {
	holdings := []models.Holding{holding("XYZ", 2)}
	quotes := map[string]market.Quote{
		"XYZ": quote("XYZ", 50, 0, 0, ""),
	}

	v := Valuate(holdings, 0, quotes)

	unknown := findSector(t, v.SectorBreakdown, market.SectorUnknown)
	assert.Equal(t, 100.0, unknown.Value)
}

func TestValuate_CashBucketAlwaysPresent(t *testing.T) {
	v := Valuate(nil, 0, nil)

	require.Len(t, v.SectorBreakdown, 1)
	assert.Equal(t, CashSector, v.SectorBreakdown[0].Sector)
	assert.Equal(t, 0.0, v.SectorBreakdown[0].Value)
}

func TestValuate_ZeroTotalValueYieldsZeroPercentages(t *testing.T) {
	holdings := []models.Holding{holding("AAPL", 0)}
	quotes := map[string]market.Quote{
		"AAPL": quote("AAPL", 175.05, 0, 0, "Technology"),
	}

	v := Valuate(holdings, 0, quotes)

	assert.Equal(t, 0.0, v.TotalValue)
	for _, b := range v.SectorBreakdown {
		assert.Equal(t, 0.0, b.Percentage, "sector %s", b.Sector)
		assert.False(t, math.IsNaN(b.Percentage))
	}
}

func TestValuate_SectorAggregation(t *testing.T) {
	holdings := []models.Holding{
		holding("AAPL", 10),
		holding("MSFT", 2),
		holding("JNJ", 4),
	}
	quotes := map[string]market.Quote{
		"AAPL": quote("AAPL", 100, 0, 0, "Technology"),
		"MSFT": quote("MSFT", 200, 0, 0, "Technology"),
		"JNJ":  quote("JNJ", 150, 0, 0, "Healthcare"),
	}

	v := Valuate(holdings, 0, quotes)

	tech := findSector(t, v.SectorBreakdown, "Technology")
	assert.Equal(t, 1400.0, tech.Value)

	health := findSector(t, v.SectorBreakdown, "Healthcare")
	assert.Equal(t, 600.0, health.Value)
}

// Property: totalValue == cash + sum(quantity * price-or-zero), exactly.
func TestValuate_TotalValueIdentityProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	holdingGen := gopter.CombineGens(
		gen.RegexMatch(`[A-Z]{1,4}`),
		gen.Float64Range(0, 1e4),
	).Map(func(vals []interface{}) models.Holding {
		return models.Holding{Ticker: vals[0].(string), Quantity: vals[1].(float64)}
	})

	properties.Property("total value identity", prop.ForAll(
		func(holdings []models.Holding, cash float64) bool {
			quotes := make(map[string]market.Quote)
			for i, h := range holdings {
				// Quote every other ticker so some holdings stay unpriced.
				if i%2 == 0 {
					quotes[h.Ticker] = quote(h.Ticker, float64(i+1)*1.5, 0, 0, "Technology")
				}
			}

			v := Valuate(holdings, cash, quotes)

			expected := cash
			for _, h := range holdings {
				if q, ok := quotes[h.Ticker]; ok {
					expected += h.Quantity * q.Price
				}
			}
			return v.TotalValue == expected
		},
		gen.SliceOf(holdingGen),
		gen.Float64Range(0, 1e6),
	))

	properties.TestingRun(t)
}

// Property: percentages sum to 100 (within 1e-6) whenever totalValue > 0,
// and to 0 when totalValue == 0; values always sum to totalValue.
func TestValuate_PercentageSumProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	holdingGen := gopter.CombineGens(
		gen.RegexMatch(`[A-Z]{1,4}`),
		gen.Float64Range(0, 1e3),
	).Map(func(vals []interface{}) models.Holding {
		return models.Holding{Ticker: vals[0].(string), Quantity: vals[1].(float64)}
	})

	properties.Property("sector percentages sum to 100 or 0", prop.ForAll(
		func(holdings []models.Holding, cash float64) bool {
			quotes := make(map[string]market.Quote)
			for i, h := range holdings {
				quotes[h.Ticker] = quote(h.Ticker, float64(i%7)*10, 0, 0, "S"+h.Ticker)
			}

			v := Valuate(holdings, cash, quotes)

			percentageSum := 0.0
			valueSum := 0.0
			for _, b := range v.SectorBreakdown {
				percentageSum += b.Percentage
				valueSum += b.Value
			}

			if math.Abs(valueSum-v.TotalValue) > 1e-6 {
				return false
			}
			if v.TotalValue > 0 {
				return math.Abs(percentageSum-100) < 1e-6
			}
			return percentageSum == 0
		},
		gen.SliceOf(holdingGen),
		gen.Float64Range(0, 1e5),
	))

	properties.TestingRun(t)
}
