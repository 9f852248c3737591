package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/folio-share/internal/logging"
	"github.com/folio-share/internal/retry"
	"github.com/folio-share/internal/types"
)

// ContentGenerator produces a model completion for a prompt
type ContentGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// InsightStore caches generated insights keyed by portfolio and update time
type InsightStore interface {
	Key(portfolioID string, updatedAt time.Time) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// GeminiGenerator adapts the Gemini client to the ContentGenerator interface
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator backed by the given Gemini client
func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// GenerateJSON asks the model for a JSON-only completion
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return text, nil
}

// PortfolioInsights is the structured analysis produced by the model
type PortfolioInsights struct {
	PortfolioSummary        string   `json:"portfolioSummary"`
	DiversificationAnalysis string   `json:"diversificationAnalysis"`
	SectorWiseExposure      string   `json:"sectorWiseExposure"`
	Thesis                  string   `json:"thesis"`
	Strengths               []string `json:"strengths"`
	Weaknesses              []string `json:"weaknesses"`
	MarketTrendsImpact      string   `json:"marketTrendsImpact"`
}

// InsightService generates AI commentary on portfolio snapshots
type InsightService struct {
	portfolioRepo PortfolioRepository
	snapshotter   Snapshotter
	generator     ContentGenerator
	cache         InsightStore
	retryConfig   *retry.Config
}

// NewInsightService creates a new insight service. The generator may be nil
// when no model credentials are configured; generation then fails with a
// configuration error while the rest of the API keeps working.
func NewInsightService(portfolioRepo PortfolioRepository, snapshotter Snapshotter, generator ContentGenerator, cache InsightStore) *InsightService {
	return &InsightService{
		portfolioRepo: portfolioRepo,
		snapshotter:   snapshotter,
		generator:     generator,
		cache:         cache,
		retryConfig:   retry.DefaultConfig(),
	}
}

// GenerateInsights produces AI commentary for a portfolio the caller owns.
// Results are cached until the portfolio next changes.
func (s *InsightService) GenerateInsights(ctx context.Context, portfolioID, userID string) (*PortfolioInsights, error) {
	if s.generator == nil {
		return nil, types.NewServiceError(types.ErrCodeConfiguration, "AI model credentials not configured")
	}

	portfolio, err := s.portfolioRepo.GetByIDAndUser(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).WithField("portfolioId", portfolioID)

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(portfolio.ID, portfolio.UpdatedAt)
		var cached PortfolioInsights
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			logger.WithError(err).Warn("Insight cache lookup failed")
		} else if found {
			return &cached, nil
		}
	}

	view, err := s.snapshotter.SnapshotForPortfolio(ctx, portfolio)
	if err != nil {
		return nil, err
	}

	prompt := buildInsightPrompt(view)

	var raw string
	result := retry.WithExponentialBackoff(ctx, s.retryConfig, func(ctx context.Context, attempt int) error {
		var genErr error
		raw, genErr = s.generator.GenerateJSON(ctx, prompt)
		return genErr
	})
	if !result.Success {
		return nil, fmt.Errorf("failed to generate insights: %w", result.LastError)
	}

	var insights PortfolioInsights
	if err := json.Unmarshal([]byte(raw), &insights); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &insights); err != nil {
			logger.WithError(err).Warn("Failed to cache insights")
		}
	}

	return &insights, nil
}

func buildInsightPrompt(view *PortfolioView) string {
	var b strings.Builder

	b.WriteString("You are a financial analyst. Analyze the following investment portfolio ")
	b.WriteString("and respond with a single JSON object containing exactly these keys: ")
	b.WriteString(`"portfolioSummary", "diversificationAnalysis", "sectorWiseExposure", `)
	b.WriteString(`"thesis", "strengths", "weaknesses", "marketTrendsImpact". `)
	b.WriteString(`"strengths" and "weaknesses" are arrays of short strings; all other values are strings.`)
	b.WriteString("\n\nPortfolio:\n")
	fmt.Fprintf(&b, "Total value: %.2f\n", view.TotalValue)
	fmt.Fprintf(&b, "Cash balance: %.2f\n", view.Portfolio.Cash)
	fmt.Fprintf(&b, "Risk score: %d (%s volatility)\n", view.Risk.Score, view.Risk.Volatility)

	b.WriteString("Holdings:\n")
	for _, h := range view.Portfolio.Holdings {
		if quote, ok := view.Quotes[h.Ticker]; ok {
			fmt.Fprintf(&b, "- %s (%s, %s sector): %.4f shares at %.2f, daily change %.2f%%\n",
				h.Ticker, quote.CompanyName, quote.Sector, h.Quantity, quote.Price, quote.ChangePercent)
		} else {
			fmt.Fprintf(&b, "- %s: %.4f shares (no quote available)\n", h.Ticker, h.Quantity)
		}
	}

	b.WriteString("Sector allocation:\n")
	for _, sector := range view.Sectors {
		fmt.Fprintf(&b, "- %s: %.2f%%\n", sector.Sector, sector.Percentage)
	}

	return b.String()
}
