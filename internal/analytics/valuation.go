// Package analytics provides the pure computation layer that turns holdings
// and quotes into valuation and risk figures. Functions here never fail and
// never touch shared state: a missing quote degrades to a zero price, not
// an error.
package analytics

import (
	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/models"
)

// CashSector is the synthetic bucket holding the portfolio's cash balance.
const CashSector = "Cash"

// SectorBreakdown is one bucket of the sector exposure split.
type SectorBreakdown struct {
	Sector     string  `json:"sector"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Valuation is the computed value view of a portfolio.
type Valuation struct {
	TotalValue      float64           `json:"totalValue"`
	HoldingsValue   float64           `json:"holdingsValue"`
	SectorBreakdown []SectorBreakdown `json:"sectorBreakdown"`
}

// Valuate computes per-holding market values, the portfolio total, and the
// sector exposure breakdown. A holding whose ticker has no quote contributes
// zero value under the "Unknown" sector. The "Cash" bucket is always present.
// When the total value is zero every percentage is zero rather than NaN.
func Valuate(holdings []models.Holding, cash float64, quotes map[string]market.Quote) Valuation {
	holdingsValue := 0.0
	sectorValues := make(map[string]float64)
	sectorOrder := make([]string, 0, len(holdings)+1)

	addSector := func(sector string, value float64) {
		if _, ok := sectorValues[sector]; !ok {
			sectorOrder = append(sectorOrder, sector)
		}
		sectorValues[sector] += value
	}

	for _, holding := range holdings {
		quote, ok := quotes[holding.Ticker]
		if !ok {
			addSector(market.SectorUnknown, 0)
			continue
		}

		value := holding.Quantity * quote.Price
		holdingsValue += value

		sector := quote.Sector
		if sector == "" {
			sector = market.SectorUnknown
		}
		addSector(sector, value)
	}

	addSector(CashSector, cash)

	totalValue := holdingsValue + cash

	breakdown := make([]SectorBreakdown, 0, len(sectorOrder))
	for _, sector := range sectorOrder {
		value := sectorValues[sector]
		percentage := 0.0
		if totalValue != 0 {
			percentage = value / totalValue * 100
		}
		breakdown = append(breakdown, SectorBreakdown{
			Sector:     sector,
			Value:      value,
			Percentage: percentage,
		})
	}

	return Valuation{
		TotalValue:      totalValue,
		HoldingsValue:   holdingsValue,
		SectorBreakdown: breakdown,
	}
}
