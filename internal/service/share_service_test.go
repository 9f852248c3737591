package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
)

type mockShareRepo struct {
	shares      map[string]*models.ShareAccess
	events      []*models.ShareAccessEvent
	recordErr   error
	recordCalls int
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{shares: make(map[string]*models.ShareAccess)}
}

func (m *mockShareRepo) Create(ctx context.Context, share *models.ShareAccess) error {
	if share.ID == "" {
		share.ID = "share-" + share.Token
	}
	share.IsActive = true
	share.ViewCount = 0
	m.shares[share.Token] = share
	return nil
}

func (m *mockShareRepo) GetByToken(ctx context.Context, token string) (*models.ShareAccess, error) {
	if s, ok := m.shares[token]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, types.NewServiceError(types.ErrCodeShareNotFound, "share link not found")
}

func (m *mockShareRepo) ListActiveByPortfolio(ctx context.Context, portfolioID string) ([]*models.ShareAccess, error) {
	var result []*models.ShareAccess
	for _, s := range m.shares {
		if s.PortfolioID == portfolioID && s.IsActive {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockShareRepo) Deactivate(ctx context.Context, token string) error {
	if s, ok := m.shares[token]; ok {
		s.IsActive = false
		return nil
	}
	return types.NewServiceError(types.ErrCodeShareNotFound, "share link not found")
}

func (m *mockShareRepo) RecordAccess(ctx context.Context, event *models.ShareAccessEvent) error {
	m.recordCalls++
	if m.recordErr != nil {
		return m.recordErr
	}
	for _, s := range m.shares {
		if s.ID == event.ShareID {
			s.ViewCount++
		}
	}
	m.events = append(m.events, event)
	return nil
}

type stubSnapshotter struct {
	err   error
	calls int
}

func (s *stubSnapshotter) SnapshotForPortfolio(ctx context.Context, portfolio *models.Portfolio) (*PortfolioView, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &PortfolioView{Portfolio: portfolio, GeneratedAt: time.Now()}, nil
}

func setupShareService(t *testing.T) (*ShareService, *mockShareRepo, *mockPortfolioRepo) {
	t.Helper()
	shareRepo := newMockShareRepo()
	portfolioRepo := newMockPortfolioRepo()
	svc := NewShareService(shareRepo, portfolioRepo, &stubSnapshotter{})
	return svc, shareRepo, portfolioRepo
}

func seedPortfolio(t *testing.T, repo *mockPortfolioRepo, userID string) *models.Portfolio {
	t.Helper()
	p := &models.Portfolio{UserID: userID, Name: "Growth", Visibility: types.VisibilitySmartShared}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to seed portfolio: %v", err)
	}
	return p
}

func TestGenerateShare_TokenFormat(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")

	share, err := svc.GenerateShare(context.Background(), &GenerateShareInput{
		PortfolioID: p.ID,
		UserID:      "user-1",
	})
	if err != nil {
		t.Fatalf("GenerateShare failed: %v", err)
	}

	if !regexp.MustCompile(`^[0-9a-f]{24}$`).MatchString(share.Token) {
		t.Errorf("Expected 24-char lowercase hex token, got %q", share.Token)
	}
	if !share.IsActive {
		t.Error("Expected new share to be active")
	}
	if share.ViewCount != 0 {
		t.Errorf("Expected zero view count, got %d", share.ViewCount)
	}
}

func TestGenerateShare_TokensAreUnique(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		share, err := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})
		if err != nil {
			t.Fatalf("GenerateShare failed: %v", err)
		}
		if seen[share.Token] {
			t.Fatalf("Duplicate token generated: %s", share.Token)
		}
		seen[share.Token] = true
	}
}

func TestGenerateShare_ForbiddenForNonOwner(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")

	_, err := svc.GenerateShare(context.Background(), &GenerateShareInput{
		PortfolioID: p.ID,
		UserID:      "user-2",
	})
	if err == nil {
		t.Fatal("Expected error for non-owner")
	}
	if code := serviceErrCode(t, err); code != types.ErrCodeForbidden {
		t.Errorf("Expected FORBIDDEN, got %s", code)
	}
}

func TestGenerateShare_PastExpiryRejected(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")

	past := time.Now().Add(-time.Hour)
	_, err := svc.GenerateShare(context.Background(), &GenerateShareInput{
		PortfolioID: p.ID,
		UserID:      "user-1",
		ExpiresAt:   &past,
	})
	if code := serviceErrCode(t, err); code != types.ErrCodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT for past expiry, got %s", code)
	}
}

func TestResolveShare_CountsExactlyOnce(t *testing.T) {
	svc, shareRepo, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})

	resolved, err := svc.ResolveShare(ctx, share.Token, AccessContext{RemoteAddr: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("ResolveShare failed: %v", err)
	}

	if resolved.ViewCount != 1 {
		t.Errorf("Expected view count 1, got %d", resolved.ViewCount)
	}
	if shareRepo.recordCalls != 1 {
		t.Errorf("Expected exactly one access record, got %d", shareRepo.recordCalls)
	}
	if len(shareRepo.events) != 1 {
		t.Fatalf("Expected one access event, got %d", len(shareRepo.events))
	}
	if shareRepo.events[0].RemoteAddr != "10.0.0.1" {
		t.Errorf("Expected remote addr recorded, got %q", shareRepo.events[0].RemoteAddr)
	}

	if _, err := svc.ResolveShare(ctx, share.Token, AccessContext{}); err != nil {
		t.Fatalf("Second ResolveShare failed: %v", err)
	}
	if shareRepo.shares[share.Token].ViewCount != 2 {
		t.Errorf("Expected view count 2 after second resolution, got %d", shareRepo.shares[share.Token].ViewCount)
	}
}

func TestResolveShare_NotFound(t *testing.T) {
	svc, _, _ := setupShareService(t)

	_, err := svc.ResolveShare(context.Background(), "0123456789abcdef01234567", AccessContext{})
	if code := serviceErrCode(t, err); code != types.ErrCodeShareNotFound {
		t.Errorf("Expected SHARE_NOT_FOUND, got %s", code)
	}
}

func TestResolveShare_Revoked(t *testing.T) {
	svc, shareRepo, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})
	if err := svc.RevokeShare(ctx, share.Token, "user-1"); err != nil {
		t.Fatalf("RevokeShare failed: %v", err)
	}

	_, err := svc.ResolveShare(ctx, share.Token, AccessContext{})
	if code := serviceErrCode(t, err); code != types.ErrCodeShareRevoked {
		t.Errorf("Expected SHARE_REVOKED, got %s", code)
	}
	if shareRepo.recordCalls != 0 {
		t.Errorf("Expected no access recorded for revoked share, got %d", shareRepo.recordCalls)
	}
}

func TestResolveShare_RevokedBeforeExpiredCheck(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	soon := time.Now().Add(time.Minute)
	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1", ExpiresAt: &soon})
	if err := svc.RevokeShare(ctx, share.Token, "user-1"); err != nil {
		t.Fatalf("RevokeShare failed: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	// A share that is both revoked and expired reports revoked.
	_, err := svc.ResolveShare(ctx, share.Token, AccessContext{})
	if code := serviceErrCode(t, err); code != types.ErrCodeShareRevoked {
		t.Errorf("Expected SHARE_REVOKED to win over expiry, got %s", code)
	}
}

func TestResolveShare_Expired(t *testing.T) {
	svc, shareRepo, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1", ExpiresAt: &future})

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := svc.ResolveShare(ctx, share.Token, AccessContext{})
	if code := serviceErrCode(t, err); code != types.ErrCodeShareExpired {
		t.Errorf("Expected SHARE_EXPIRED, got %s", code)
	}
	if shareRepo.recordCalls != 0 {
		t.Errorf("Expected no access recorded for expired share, got %d", shareRepo.recordCalls)
	}
}

func TestResolveShare_RecordFailureFailsResolution(t *testing.T) {
	svc, shareRepo, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})
	shareRepo.recordErr = errors.New("db unavailable")

	_, err := svc.ResolveShare(ctx, share.Token, AccessContext{})
	if err == nil {
		t.Fatal("Expected resolution to fail when access recording fails")
	}
	if shareRepo.shares[share.Token].ViewCount != 0 {
		t.Errorf("Expected view count unchanged on failure, got %d", shareRepo.shares[share.Token].ViewCount)
	}
	if len(shareRepo.events) != 0 {
		t.Errorf("Expected no access events on failure, got %d", len(shareRepo.events))
	}
}

func TestRevokeShare_OwnerOnly(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})

	err := svc.RevokeShare(ctx, share.Token, "user-2")
	if code := serviceErrCode(t, err); code != types.ErrCodeForbidden {
		t.Errorf("Expected FORBIDDEN for non-owner revoke, got %s", code)
	}

	// Token still resolvable after the failed revoke.
	if _, err := svc.ResolveShare(ctx, share.Token, AccessContext{}); err != nil {
		t.Errorf("Expected share still active, got %v", err)
	}
}

func TestRevokeShare_Idempotent(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	share, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})

	if err := svc.RevokeShare(ctx, share.Token, "user-1"); err != nil {
		t.Fatalf("First revoke failed: %v", err)
	}
	if err := svc.RevokeShare(ctx, share.Token, "user-1"); err != nil {
		t.Fatalf("Second revoke should succeed, got %v", err)
	}
}

func TestListShares(t *testing.T) {
	svc, _, portfolioRepo := setupShareService(t)
	p := seedPortfolio(t, portfolioRepo, "user-1")
	ctx := context.Background()

	first, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})
	second, _ := svc.GenerateShare(ctx, &GenerateShareInput{PortfolioID: p.ID, UserID: "user-1"})
	_ = svc.RevokeShare(ctx, first.Token, "user-1")

	shares, err := svc.ListShares(ctx, p.ID, "user-1")
	if err != nil {
		t.Fatalf("ListShares failed: %v", err)
	}
	if len(shares) != 1 || shares[0].Token != second.Token {
		t.Errorf("Expected only the active share, got %+v", shares)
	}
}
