package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/retry"
	"github.com/folio-share/internal/types"
)

type stubGenerator struct {
	response string
	errs     []error
	calls    int
	prompts  []string
}

func (g *stubGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return "", err
	}
	return g.response, nil
}

type memoryInsightStore struct {
	mu      sync.Mutex
	entries map[string]*PortfolioInsights
}

func newMemoryInsightStore() *memoryInsightStore {
	return &memoryInsightStore{entries: make(map[string]*PortfolioInsights)}
}

func (s *memoryInsightStore) Key(portfolioID string, updatedAt time.Time) string {
	return "insights:" + portfolioID + ":" + updatedAt.UTC().Format(time.RFC3339)
}

func (s *memoryInsightStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.entries[key]; ok {
		*dest.(*PortfolioInsights) = *v
		return true, nil
	}
	return false, nil
}

func (s *memoryInsightStore) Set(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *value.(*PortfolioInsights)
	s.entries[key] = &v
	return nil
}

const insightsJSON = `{
	"portfolioSummary": "A concentrated technology portfolio.",
	"diversificationAnalysis": "Low diversification.",
	"sectorWiseExposure": "Technology dominates.",
	"thesis": "Growth through large caps.",
	"strengths": ["strong brands"],
	"weaknesses": ["single sector"],
	"marketTrendsImpact": "Sensitive to rate changes."
}`

func fastRetryConfig() *retry.Config {
	return &retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0}
}

func setupInsightService(t *testing.T, generator ContentGenerator) (*InsightService, *mockPortfolioRepo, *memoryInsightStore) {
	t.Helper()
	repo := newMockPortfolioRepo()
	fetcher := &mockFetcher{results: map[string]market.Result{
		"AAPL": quoteResult("AAPL", 175.05, 1.2, "Technology"),
	}}
	snapshotter := NewPortfolioService(repo, fetcher)
	store := newMemoryInsightStore()
	svc := NewInsightService(repo, snapshotter, generator, store)
	svc.retryConfig = fastRetryConfig()
	return svc, repo, store
}

func seedInsightPortfolio(t *testing.T, repo *mockPortfolioRepo) string {
	t.Helper()
	svc := NewPortfolioService(repo, &mockFetcher{})
	created, err := svc.CreatePortfolio(context.Background(), &CreatePortfolioInput{
		UserID:   "user-1",
		Name:     "Growth",
		Cash:     2500,
		Holdings: []HoldingInput{{Ticker: "AAPL", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("failed to seed portfolio: %v", err)
	}
	return created.ID
}

func TestGenerateInsights(t *testing.T) {
	gen := &stubGenerator{response: insightsJSON}
	svc, repo, _ := setupInsightService(t, gen)
	portfolioID := seedInsightPortfolio(t, repo)

	insights, err := svc.GenerateInsights(context.Background(), portfolioID, "user-1")
	if err != nil {
		t.Fatalf("GenerateInsights failed: %v", err)
	}

	if insights.PortfolioSummary == "" {
		t.Error("Expected portfolio summary to be populated")
	}
	if len(insights.Strengths) != 1 || insights.Strengths[0] != "strong brands" {
		t.Errorf("Expected strengths parsed, got %v", insights.Strengths)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("Expected one prompt, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	for _, want := range []string{"AAPL", "Technology", "portfolioSummary", "Cash balance: 2500.00"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestGenerateInsights_CachedUntilPortfolioChanges(t *testing.T) {
	gen := &stubGenerator{response: insightsJSON}
	svc, repo, _ := setupInsightService(t, gen)
	portfolioID := seedInsightPortfolio(t, repo)
	ctx := context.Background()

	if _, err := svc.GenerateInsights(ctx, portfolioID, "user-1"); err != nil {
		t.Fatalf("GenerateInsights failed: %v", err)
	}
	if _, err := svc.GenerateInsights(ctx, portfolioID, "user-1"); err != nil {
		t.Fatalf("Second GenerateInsights failed: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("Expected one model call for unchanged portfolio, got %d", gen.calls)
	}

	// Touching the portfolio invalidates the cache key.
	repo.portfolios[portfolioID].UpdatedAt = repo.portfolios[portfolioID].UpdatedAt.Add(time.Minute)
	if _, err := svc.GenerateInsights(ctx, portfolioID, "user-1"); err != nil {
		t.Fatalf("GenerateInsights after update failed: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("Expected fresh model call after portfolio update, got %d calls", gen.calls)
	}
}

func TestGenerateInsights_RetriesTransientFailure(t *testing.T) {
	gen := &stubGenerator{
		response: insightsJSON,
		errs:     []error{errors.New("rate limited")},
	}
	svc, repo, _ := setupInsightService(t, gen)
	portfolioID := seedInsightPortfolio(t, repo)

	insights, err := svc.GenerateInsights(context.Background(), portfolioID, "user-1")
	if err != nil {
		t.Fatalf("GenerateInsights failed: %v", err)
	}
	if insights.Thesis == "" {
		t.Error("Expected insights after retry")
	}
	if gen.calls != 2 {
		t.Errorf("Expected 2 model calls, got %d", gen.calls)
	}
}

func TestGenerateInsights_NilGenerator(t *testing.T) {
	repo := newMockPortfolioRepo()
	snapshotter := NewPortfolioService(repo, &mockFetcher{})
	svc := NewInsightService(repo, snapshotter, nil, nil)
	portfolioID := seedInsightPortfolio(t, repo)

	_, err := svc.GenerateInsights(context.Background(), portfolioID, "user-1")
	if code := serviceErrCode(t, err); code != types.ErrCodeConfiguration {
		t.Errorf("Expected CONFIGURATION_ERROR, got %s", code)
	}
}

func TestGenerateInsights_MalformedResponse(t *testing.T) {
	gen := &stubGenerator{response: "not json"}
	svc, repo, _ := setupInsightService(t, gen)
	portfolioID := seedInsightPortfolio(t, repo)

	_, err := svc.GenerateInsights(context.Background(), portfolioID, "user-1")
	if err == nil {
		t.Fatal("Expected error for malformed model response")
	}
}

func TestGenerateInsights_OwnerOnly(t *testing.T) {
	gen := &stubGenerator{response: insightsJSON}
	svc, repo, _ := setupInsightService(t, gen)
	portfolioID := seedInsightPortfolio(t, repo)

	_, err := svc.GenerateInsights(context.Background(), portfolioID, "user-2")
	if code := serviceErrCode(t, err); code != types.ErrCodeForbidden {
		t.Errorf("Expected FORBIDDEN, got %s", code)
	}
	if gen.calls != 0 {
		t.Errorf("Expected no model calls for foreign portfolio, got %d", gen.calls)
	}
}
