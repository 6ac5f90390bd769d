package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for credential records.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	MarkVerified(ctx context.Context, email string, when time.Time) error
}

// User represents a stored credential record. PasswordHash is nil for
// accounts created through an external identity provider; such accounts
// cannot log in with a password.
type User struct {
	ID              uuid.UUID
	Email           string
	Name            string
	Image           string
	PasswordHash    *string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity is the minimal user shape handed to the boundary for session
// establishment. It never carries the password hash.
type Identity struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Image           string     `json:"image,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

// Identity returns the boundary-safe view of the user.
func (u User) Identity() Identity {
	return Identity{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Image:           u.Image,
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// every rate limit key goes through this so that case variants of one
// address share a single credential record and limit window.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
