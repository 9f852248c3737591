package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/folio-share/internal/analytics"
	"github.com/folio-share/internal/logging"
	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
)

// Repository interfaces for dependency injection

// PortfolioRepository interface for portfolio data operations
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
	GetByID(ctx context.Context, id string) (*models.Portfolio, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.Portfolio, error)
	Update(ctx context.Context, portfolio *models.Portfolio) error
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
	ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error)
	ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error)
}

// QuoteFetcher interface for batch market-data retrieval
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]market.Result, error)
}

// PortfolioService handles portfolio management and snapshot assembly
type PortfolioService struct {
	portfolioRepo PortfolioRepository
	fetcher       QuoteFetcher
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(portfolioRepo PortfolioRepository, fetcher QuoteFetcher) *PortfolioService {
	return &PortfolioService{
		portfolioRepo: portfolioRepo,
		fetcher:       fetcher,
	}
}

// Input types

// HoldingInput represents one position in a create or update request
type HoldingInput struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
}

// CreatePortfolioInput represents input for creating a portfolio
type CreatePortfolioInput struct {
	UserID      string           `json:"userId"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Cash        float64          `json:"cash"`
	Visibility  types.Visibility `json:"visibility,omitempty"`
	Holdings    []HoldingInput   `json:"holdings"`
}

// UpdatePortfolioInput represents input for updating a portfolio
type UpdatePortfolioInput struct {
	PortfolioID string            `json:"portfolioId"`
	UserID      string            `json:"userId"`
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Cash        *float64          `json:"cash,omitempty"`
	Visibility  *types.Visibility `json:"visibility,omitempty"`
	Holdings    []HoldingInput    `json:"holdings,omitempty"`
}

// Output types

// PortfolioView represents a portfolio with live valuation and risk data
type PortfolioView struct {
	Portfolio     *models.Portfolio           `json:"portfolio"`
	TotalValue    float64                     `json:"totalValue"`
	HoldingsValue float64                     `json:"holdingsValue"`
	Sectors       []analytics.SectorBreakdown `json:"sectors"`
	Risk          analytics.RiskProfile       `json:"risk"`
	Quotes        map[string]market.Quote     `json:"quotes"`
	QuoteErrors   map[string]string           `json:"quoteErrors,omitempty"`
	GeneratedAt   time.Time                   `json:"generatedAt"`
}

// CreatePortfolio validates input and persists a new portfolio
func (s *PortfolioService) CreatePortfolio(ctx context.Context, input *CreatePortfolioInput) (*models.Portfolio, error) {
	if input.UserID == "" {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "userId is required")
	}
	if err := validatePortfolioFields(input.Name, input.Cash, input.Holdings); err != nil {
		return nil, err
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = types.VisibilityPrivate
	}
	if err := validateVisibility(visibility); err != nil {
		return nil, err
	}

	portfolio := &models.Portfolio{
		UserID:      input.UserID,
		Name:        input.Name,
		Description: input.Description,
		Cash:        input.Cash,
		Visibility:  visibility,
		Holdings:    buildHoldings(input.Holdings),
	}

	if err := s.portfolioRepo.Create(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	return portfolio, nil
}

// GetPortfolio retrieves a portfolio owned by the given user
func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID, userID string) (*models.Portfolio, error) {
	return s.portfolioRepo.GetByIDAndUser(ctx, portfolioID, userID)
}

// ListPortfolios returns all portfolios owned by the given user
func (s *PortfolioService) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	if userID == "" {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "userId is required")
	}
	return s.portfolioRepo.ListByUser(ctx, userID)
}

// UpdatePortfolio applies partial updates to a portfolio owned by the given user.
// When Holdings is non-nil the full set is replaced.
func (s *PortfolioService) UpdatePortfolio(ctx context.Context, input *UpdatePortfolioInput) (*models.Portfolio, error) {
	portfolio, err := s.portfolioRepo.GetByIDAndUser(ctx, input.PortfolioID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, types.NewServiceError(types.ErrCodeInvalidInput, "portfolio name is required")
		}
		portfolio.Name = *input.Name
	}
	if input.Description != nil {
		portfolio.Description = input.Description
	}
	if input.Cash != nil {
		if *input.Cash < 0 {
			return nil, types.NewServiceError(types.ErrCodeInvalidInput, "cash balance must not be negative")
		}
		portfolio.Cash = *input.Cash
	}
	if input.Visibility != nil {
		if err := validateVisibility(*input.Visibility); err != nil {
			return nil, err
		}
		portfolio.Visibility = *input.Visibility
	}
	if input.Holdings != nil {
		if err := validateHoldings(input.Holdings); err != nil {
			return nil, err
		}
		portfolio.Holdings = buildHoldings(input.Holdings)
	}

	if err := s.portfolioRepo.Update(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to update portfolio: %w", err)
	}

	return portfolio, nil
}

// DeletePortfolio removes a portfolio owned by the given user
func (s *PortfolioService) DeletePortfolio(ctx context.Context, portfolioID, userID string) error {
	return s.portfolioRepo.DeleteByIDAndUser(ctx, portfolioID, userID)
}

// GetSnapshot assembles a live valuation view for a portfolio owned by the
// given user. Symbols whose quotes fail are reported in QuoteErrors and
// valued at zero; a missing provider configuration fails the whole request.
func (s *PortfolioService) GetSnapshot(ctx context.Context, portfolioID, userID string) (*PortfolioView, error) {
	portfolio, err := s.portfolioRepo.GetByIDAndUser(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	return s.buildSnapshot(ctx, portfolio)
}

// SnapshotForPortfolio assembles a valuation view without an ownership check.
// Callers are responsible for access control.
func (s *PortfolioService) SnapshotForPortfolio(ctx context.Context, portfolio *models.Portfolio) (*PortfolioView, error) {
	return s.buildSnapshot(ctx, portfolio)
}

func (s *PortfolioService) buildSnapshot(ctx context.Context, portfolio *models.Portfolio) (*PortfolioView, error) {
	logger := logging.FromContext(ctx).WithField("portfolioId", portfolio.ID)

	symbols := make([]string, 0, len(portfolio.Holdings))
	for _, h := range portfolio.Holdings {
		symbols = append(symbols, h.Ticker)
	}

	quotes := make(map[string]market.Quote)
	quoteErrors := make(map[string]string)

	if len(symbols) > 0 {
		results, err := s.fetcher.FetchQuotes(ctx, symbols)
		if err != nil {
			return nil, err
		}
		for symbol, result := range results {
			if result.Err != nil {
				logger.WithField("symbol", symbol).WithError(result.Err).Warn("Quote unavailable for snapshot")
				quoteErrors[symbol] = result.Err.Error()
				continue
			}
			quotes[symbol] = *result.Quote
		}
	}

	valuation := analytics.Valuate(portfolio.Holdings, portfolio.Cash, quotes)
	risk := analytics.AssessRisk(portfolio.Holdings, quotes)

	view := &PortfolioView{
		Portfolio:     portfolio,
		TotalValue:    valuation.TotalValue,
		HoldingsValue: valuation.HoldingsValue,
		Sectors:       valuation.SectorBreakdown,
		Risk:          risk,
		Quotes:        quotes,
		GeneratedAt:   time.Now(),
	}
	if len(quoteErrors) > 0 {
		view.QuoteErrors = quoteErrors
	}

	return view, nil
}

func validatePortfolioFields(name string, cash float64, holdings []HoldingInput) error {
	if name == "" {
		return types.NewServiceError(types.ErrCodeInvalidInput, "portfolio name is required")
	}
	if cash < 0 {
		return types.NewServiceError(types.ErrCodeInvalidInput, "cash balance must not be negative")
	}
	return validateHoldings(holdings)
}

func validateHoldings(holdings []HoldingInput) error {
	seen := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		ticker := strings.ToUpper(strings.TrimSpace(h.Ticker))
		if ticker == "" {
			return types.NewServiceError(types.ErrCodeInvalidInput, "holding ticker is required")
		}
		if h.Quantity < 0 {
			return &types.ServiceError{
				Code:    types.ErrCodeInvalidInput,
				Message: fmt.Sprintf("holding quantity must not be negative: %s", ticker),
			}
		}
		if seen[ticker] {
			return &types.ServiceError{
				Code:    types.ErrCodeInvalidInput,
				Message: fmt.Sprintf("duplicate holding ticker: %s", ticker),
			}
		}
		seen[ticker] = true
	}
	return nil
}

func validateVisibility(v types.Visibility) error {
	switch v {
	case types.VisibilityPrivate, types.VisibilityPublic, types.VisibilitySmartShared:
		return nil
	default:
		return &types.ServiceError{
			Code:    types.ErrCodeInvalidInput,
			Message: fmt.Sprintf("invalid visibility: %s", v),
		}
	}
}

func buildHoldings(inputs []HoldingInput) []models.Holding {
	holdings := make([]models.Holding, 0, len(inputs))
	for _, h := range inputs {
		holdings = append(holdings, models.Holding{
			Ticker:   strings.ToUpper(strings.TrimSpace(h.Ticker)),
			Quantity: h.Quantity,
		})
	}
	return holdings
}
