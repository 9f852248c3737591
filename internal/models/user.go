// Package models provides data models for the folio-share system.
package models

import (
	"time"
)

// User represents a registered user. Authentication itself lives in a
// collaborator; the service only needs identity for ownership checks.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
