package models

import (
	"time"

	"github.com/folio-share/internal/types"
)

// Portfolio represents a user's investment portfolio: a cash balance plus
// a set of ticker holdings.
type Portfolio struct {
	ID          string           `json:"id" db:"id"`
	UserID      string           `json:"userId" db:"user_id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	Cash        float64          `json:"cash" db:"cash"`
	Visibility  types.Visibility `json:"visibility" db:"visibility"`
	Holdings    []Holding        `json:"holdings"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// Holding represents a single position within a portfolio. Identity is
// (portfolio, ticker); quantity changes only through user-initiated updates.
type Holding struct {
	ID          string    `json:"id" db:"id"`
	PortfolioID string    `json:"portfolioId" db:"portfolio_id"`
	Ticker      string    `json:"ticker" db:"ticker"`
	Quantity    float64   `json:"quantity" db:"quantity"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
