package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ShareRepository handles share-access records and their access log
type ShareRepository struct {
	db *PostgresDB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *PostgresDB) *ShareRepository {
	return &ShareRepository{db: db}
}

func shareNotFound() error {
	return types.NewServiceError(types.ErrCodeShareNotFound, "share link not found")
}

// Create creates a new share-access record
func (r *ShareRepository) Create(ctx context.Context, share *models.ShareAccess) error {
	if share.ID == "" {
		share.ID = uuid.New().String()
	}

	now := time.Now()
	share.CreatedAt = now
	share.UpdatedAt = now
	share.IsActive = true
	share.ViewCount = 0

	query := `
		INSERT INTO share_access (id, token, portfolio_id, is_active, expires_at, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		share.ID,
		share.Token,
		share.PortfolioID,
		share.IsActive,
		share.ExpiresAt,
		share.ViewCount,
		share.CreatedAt,
		share.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}

	return nil
}

// GetByToken retrieves a share-access record by its token
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*models.ShareAccess, error) {
	query := `
		SELECT id, token, portfolio_id, is_active, expires_at, view_count, created_at, updated_at
		FROM share_access
		WHERE token = $1
	`

	var share models.ShareAccess
	err := r.db.Pool().QueryRow(ctx, query, token).Scan(
		&share.ID,
		&share.Token,
		&share.PortfolioID,
		&share.IsActive,
		&share.ExpiresAt,
		&share.ViewCount,
		&share.CreatedAt,
		&share.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shareNotFound()
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	return &share, nil
}

// ListActiveByPortfolio lists active share records for a portfolio
func (r *ShareRepository) ListActiveByPortfolio(ctx context.Context, portfolioID string) ([]*models.ShareAccess, error) {
	query := `
		SELECT id, token, portfolio_id, is_active, expires_at, view_count, created_at, updated_at
		FROM share_access
		WHERE portfolio_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	var shares []*models.ShareAccess
	for rows.Next() {
		var s models.ShareAccess
		if err := rows.Scan(&s.ID, &s.Token, &s.PortfolioID, &s.IsActive, &s.ExpiresAt, &s.ViewCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, &s)
	}

	return shares, rows.Err()
}

// Deactivate revokes a share record. Records are never deleted.
func (r *ShareRepository) Deactivate(ctx context.Context, token string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE share_access SET is_active = FALSE, updated_at = $1 WHERE token = $2`,
		time.Now(), token,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate share: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shareNotFound()
	}
	return nil
}

// RecordAccess increments the view count and appends one access-log row in a
// single transaction, so concurrent resolutions of the same token each count
// exactly once.
func (r *ShareRepository) RecordAccess(ctx context.Context, event *models.ShareAccessEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.AccessedAt.IsZero() {
		event.AccessedAt = time.Now()
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE share_access SET view_count = view_count + 1, updated_at = $1 WHERE id = $2`,
		event.AccessedAt, event.ShareID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shareNotFound()
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO share_access_events (id, share_id, accessed_at, remote_addr, user_agent)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.ShareID, event.AccessedAt, event.RemoteAddr, event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to append access log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit access record: %w", err)
	}

	return nil
}
