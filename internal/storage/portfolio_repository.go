package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PortfolioRepository handles portfolio and holding persistence
type PortfolioRepository struct {
	db *PostgresDB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *PostgresDB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func portfolioNotFound(id string) error {
	return types.NewServiceError(types.ErrCodePortfolioNotFound, fmt.Sprintf("portfolio not found: %s", id))
}

// Create creates a new portfolio together with its holdings
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID == "" {
		portfolio.ID = uuid.New().String()
	}
	if portfolio.Visibility == "" {
		portfolio.Visibility = types.VisibilityPrivate
	}

	now := time.Now()
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO portfolios (id, user_id, name, description, cash, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, query,
		portfolio.ID,
		portfolio.UserID,
		portfolio.Name,
		portfolio.Description,
		portfolio.Cash,
		portfolio.Visibility,
		portfolio.CreatedAt,
		portfolio.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	if err := insertHoldings(ctx, tx, portfolio.ID, portfolio.Holdings, now); err != nil {
		return err
	}
	for i := range portfolio.Holdings {
		portfolio.Holdings[i].PortfolioID = portfolio.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertHoldings(ctx context.Context, tx pgx.Tx, portfolioID string, holdings []models.Holding, now time.Time) error {
	query := `
		INSERT INTO holdings (id, portfolio_id, ticker, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range holdings {
		if holdings[i].ID == "" {
			holdings[i].ID = uuid.New().String()
		}
		holdings[i].Ticker = strings.ToUpper(holdings[i].Ticker)
		holdings[i].CreatedAt = now
		holdings[i].UpdatedAt = now

		_, err := tx.Exec(ctx, query,
			holdings[i].ID,
			portfolioID,
			holdings[i].Ticker,
			holdings[i].Quantity,
			holdings[i].CreatedAt,
			holdings[i].UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", holdings[i].Ticker, err)
		}
	}

	return nil
}

// GetByID retrieves a portfolio with its holdings
func (r *PortfolioRepository) GetByID(ctx context.Context, id string) (*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, description, cash, visibility, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`

	var portfolio models.Portfolio
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&portfolio.ID,
		&portfolio.UserID,
		&portfolio.Name,
		&portfolio.Description,
		&portfolio.Cash,
		&portfolio.Visibility,
		&portfolio.CreatedAt,
		&portfolio.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portfolioNotFound(id)
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	holdings, err := r.loadHoldings(ctx, id)
	if err != nil {
		return nil, err
	}
	portfolio.Holdings = holdings

	return &portfolio, nil
}

// GetByIDAndUser retrieves a portfolio and verifies ownership
func (r *PortfolioRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.Portfolio, error) {
	portfolio, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if portfolio.UserID != userID {
		return nil, types.NewServiceError(types.ErrCodeForbidden, "portfolio does not belong to this user")
	}
	return portfolio, nil
}

func (r *PortfolioRepository) loadHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	query := `
		SELECT id, portfolio_id, ticker, quantity, created_at, updated_at
		FROM holdings
		WHERE portfolio_id = $1
		ORDER BY ticker
	`

	rows, err := r.db.Pool().Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Ticker, &h.Quantity, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	return holdings, rows.Err()
}

// Update updates a portfolio and replaces its holdings
func (r *PortfolioRepository) Update(ctx context.Context, portfolio *models.Portfolio) error {
	portfolio.UpdatedAt = time.Now()

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE portfolios
		SET name = $1, description = $2, cash = $3, visibility = $4, updated_at = $5
		WHERE id = $6
	`

	tag, err := tx.Exec(ctx, query,
		portfolio.Name,
		portfolio.Description,
		portfolio.Cash,
		portfolio.Visibility,
		portfolio.UpdatedAt,
		portfolio.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return portfolioNotFound(portfolio.ID)
	}

	// Holdings are replaced wholesale on update.
	if _, err := tx.Exec(ctx, `DELETE FROM holdings WHERE portfolio_id = $1`, portfolio.ID); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	if err := insertHoldings(ctx, tx, portfolio.ID, portfolio.Holdings, portfolio.UpdatedAt); err != nil {
		return err
	}
	for i := range portfolio.Holdings {
		portfolio.Holdings[i].PortfolioID = portfolio.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByIDAndUser deletes a portfolio owned by the given user
func (r *PortfolioRepository) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM portfolios WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return portfolioNotFound(id)
	}
	return nil
}

// ListByUser lists all portfolios owned by a user, holdings included
func (r *PortfolioRepository) ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, description, cash, visibility, created_at, updated_at
		FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Cash, &p.Visibility, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range portfolios {
		holdings, err := r.loadHoldings(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Holdings = holdings
	}

	return portfolios, nil
}

// ExistsByIDAndUser reports whether a portfolio exists and is owned by the user
func (r *PortfolioRepository) ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM portfolios WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check portfolio ownership: %w", err)
	}
	return exists, nil
}
