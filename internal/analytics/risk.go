package analytics

import (
	"math"

	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
)

// riskFreeRate is the fixed rate subtracted from the weighted return in the
// Sharpe-like ratio.
const riskFreeRate = 0.02

// minScoreFraction floors score/100 in the Sharpe-like denominator so a
// zero risk score yields a defined ratio instead of a division by zero.
const minScoreFraction = 0.01

// RiskProfile is the derived risk view of a portfolio's holdings.
// The formulas are deliberately simplified percent-change proxies, not
// textbook financial definitions; keep them as they are.
type RiskProfile struct {
	Score       int                   `json:"score"`
	Volatility  types.VolatilityLevel `json:"volatility"`
	SharpeRatio float64               `json:"sharpeRatio"`
	Beta        float64               `json:"beta"`
	Drawdown    float64               `json:"drawdown"`
}

// AssessRisk computes the composite risk score and derived statistics for a
// set of holdings. Cash is excluded from risk weighting; a holding without a
// quote contributes zero weight and zero value. Deterministic and pure.
func AssessRisk(holdings []models.Holding, quotes map[string]market.Quote) RiskProfile {
	totalValue := 0.0
	for _, holding := range holdings {
		if quote, ok := quotes[holding.Ticker]; ok {
			totalValue += holding.Quantity * quote.Price
		}
	}

	weightedAbsChange := 0.0
	weightedChange := 0.0
	previousValue := 0.0
	if totalValue != 0 {
		for _, holding := range holdings {
			quote, ok := quotes[holding.Ticker]
			if !ok {
				continue
			}
			weight := holding.Quantity * quote.Price / totalValue
			weightedAbsChange += math.Abs(quote.ChangePercent) * weight
			weightedChange += quote.ChangePercent * weight
		}
	}
	for _, holding := range holdings {
		if quote, ok := quotes[holding.Ticker]; ok {
			previousValue += holding.Quantity * quote.PreviousClose
		}
	}

	score := int(math.Min(math.Round(weightedAbsChange*2), 100))

	scoreFraction := float64(score) / 100
	if scoreFraction < minScoreFraction {
		scoreFraction = minScoreFraction
	}
	sharpe := (weightedChange - riskFreeRate) / scoreFraction

	beta := weightedChange / 100

	drawdown := 0.0
	if previousValue != 0 {
		drawdown = (totalValue - previousValue) / previousValue * 100
	}

	return RiskProfile{
		Score:       score,
		Volatility:  volatilityBucket(score),
		SharpeRatio: sharpe,
		Beta:        beta,
		Drawdown:    drawdown,
	}
}

func volatilityBucket(score int) types.VolatilityLevel {
	switch {
	case score < 30:
		return types.VolatilityLow
	case score < 70:
		return types.VolatilityMedium
	default:
		return types.VolatilityHigh
	}
}
