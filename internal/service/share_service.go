package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/folio-share/internal/logging"
	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
)

const shareTokenBytes = 12

// ShareRepository interface for share-access data operations
type ShareRepository interface {
	Create(ctx context.Context, share *models.ShareAccess) error
	GetByToken(ctx context.Context, token string) (*models.ShareAccess, error)
	ListActiveByPortfolio(ctx context.Context, portfolioID string) ([]*models.ShareAccess, error)
	Deactivate(ctx context.Context, token string) error
	RecordAccess(ctx context.Context, event *models.ShareAccessEvent) error
}

// Snapshotter builds a valuation view for an already-authorized portfolio
type Snapshotter interface {
	SnapshotForPortfolio(ctx context.Context, portfolio *models.Portfolio) (*PortfolioView, error)
}

// ShareService manages share tokens and resolves them to portfolio views
type ShareService struct {
	shareRepo     ShareRepository
	portfolioRepo PortfolioRepository
	snapshotter   Snapshotter
	now           func() time.Time
}

// NewShareService creates a new share service
func NewShareService(shareRepo ShareRepository, portfolioRepo PortfolioRepository, snapshotter Snapshotter) *ShareService {
	return &ShareService{
		shareRepo:     shareRepo,
		portfolioRepo: portfolioRepo,
		snapshotter:   snapshotter,
		now:           time.Now,
	}
}

// GenerateShareInput represents input for creating a share link
type GenerateShareInput struct {
	PortfolioID string     `json:"portfolioId"`
	UserID      string     `json:"userId"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// AccessContext carries request metadata recorded in the access log
type AccessContext struct {
	RemoteAddr string
	UserAgent  string
}

// SharedPortfolioView is the read-only view returned for a resolved token
type SharedPortfolioView struct {
	Token     string         `json:"token"`
	ViewCount int64          `json:"viewCount"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	View      *PortfolioView `json:"view"`
}

// GenerateShare creates a new share token for a portfolio the caller owns.
// Ownership failures return FORBIDDEN when the portfolio exists under another
// user, PORTFOLIO_NOT_FOUND otherwise.
func (s *ShareService) GenerateShare(ctx context.Context, input *GenerateShareInput) (*models.ShareAccess, error) {
	if input.UserID == "" {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "userId is required")
	}
	if input.PortfolioID == "" {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "portfolioId is required")
	}
	if input.ExpiresAt != nil && input.ExpiresAt.Before(s.now()) {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "expiry must be in the future")
	}

	if _, err := s.portfolioRepo.GetByIDAndUser(ctx, input.PortfolioID, input.UserID); err != nil {
		return nil, err
	}

	token, err := newShareToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	share := &models.ShareAccess{
		Token:       token,
		PortfolioID: input.PortfolioID,
		ExpiresAt:   input.ExpiresAt,
	}

	if err := s.shareRepo.Create(ctx, share); err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"portfolioId": input.PortfolioID,
		"shareId":     share.ID,
	}).Info("Share link created")

	return share, nil
}

// RevokeShare deactivates a share token. Only the portfolio owner may revoke.
// Revocation is idempotent: revoking an already-inactive share succeeds.
func (s *ShareService) RevokeShare(ctx context.Context, token, userID string) error {
	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	if _, err := s.portfolioRepo.GetByIDAndUser(ctx, share.PortfolioID, userID); err != nil {
		return err
	}

	if err := s.shareRepo.Deactivate(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke share: %w", err)
	}

	return nil
}

// ListShares returns the active share links for a portfolio the caller owns
func (s *ShareService) ListShares(ctx context.Context, portfolioID, userID string) ([]*models.ShareAccess, error) {
	if _, err := s.portfolioRepo.GetByIDAndUser(ctx, portfolioID, userID); err != nil {
		return nil, err
	}
	return s.shareRepo.ListActiveByPortfolio(ctx, portfolioID)
}

// ResolveShare validates a token and returns the shared portfolio view.
// Checks run in order: existence, active flag, expiry. A successful
// resolution increments the view count and appends one access-log row;
// if that write fails the resolution fails and nothing is returned.
func (s *ShareService) ResolveShare(ctx context.Context, token string, access AccessContext) (*SharedPortfolioView, error) {
	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !share.IsActive {
		return nil, types.NewServiceError(types.ErrCodeShareRevoked, "share link has been revoked")
	}

	if share.ExpiresAt != nil && share.ExpiresAt.Before(s.now()) {
		return nil, types.NewServiceError(types.ErrCodeShareExpired, "share link has expired")
	}

	portfolio, err := s.portfolioRepo.GetByID(ctx, share.PortfolioID)
	if err != nil {
		return nil, err
	}

	event := &models.ShareAccessEvent{
		ShareID:    share.ID,
		AccessedAt: s.now(),
		RemoteAddr: access.RemoteAddr,
		UserAgent:  access.UserAgent,
	}
	if err := s.shareRepo.RecordAccess(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record share access: %w", err)
	}
	share.ViewCount++

	view, err := s.snapshotter.SnapshotForPortfolio(ctx, portfolio)
	if err != nil {
		return nil, err
	}

	return &SharedPortfolioView{
		Token:     share.Token,
		ViewCount: share.ViewCount,
		ExpiresAt: share.ExpiresAt,
		View:      view,
	}, nil
}

func newShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
