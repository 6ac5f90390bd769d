package model

import (
	"context"
	"time"
)

// ResetIdentifierPrefix namespaces password reset tokens inside the shared
// verification token store. A plain email identifier is an email
// verification token; a prefixed one is a password reset token.
const ResetIdentifierPrefix = "reset:"

// TokenStore persists single-use verification and reset tokens. Tokens are
// the lookup key; identifiers group tokens for the single-live-token
// invariant.
type TokenStore interface {
	// Replace deletes any prior tokens for the identifier and inserts the
	// new one in a single transaction.
	Replace(ctx context.Context, token VerificationToken) error
	// ConsumeByToken deletes the row for the token and returns it.
	// Returns ErrNotFound when no such token exists.
	ConsumeByToken(ctx context.Context, token string) (VerificationToken, error)
}

// VerificationToken is a stored email verification or password reset token.
type VerificationToken struct {
	Identifier string
	Token      string
	ExpiresAt  time.Time
}

// ResetIdentifier builds the token identifier for a password reset.
func ResetIdentifier(email string) string {
	return ResetIdentifierPrefix + email
}
