package models

import (
	"time"
)

// ShareAccess represents a revocable read-only grant on a portfolio.
// Records are never deleted, only deactivated.
type ShareAccess struct {
	ID          string     `json:"id" db:"id"`
	Token       string     `json:"token" db:"token"`
	PortfolioID string     `json:"portfolioId" db:"portfolio_id"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	ViewCount   int64      `json:"viewCount" db:"view_count"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// ShareAccessEvent is one row of the access log, appended exactly once per
// successful token resolution.
type ShareAccessEvent struct {
	ID         string    `json:"id" db:"id"`
	ShareID    string    `json:"shareId" db:"share_id"`
	AccessedAt time.Time `json:"accessedAt" db:"accessed_at"`
	RemoteAddr string    `json:"remoteAddr,omitempty" db:"remote_addr"`
	UserAgent  string    `json:"userAgent,omitempty" db:"user_agent"`
}
