package model

import "context"

// Mailer delivers verification and password reset tokens to the account's
// email address. The server core depends only on this seam; the default
// implementation logs the message instead of sending it.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}
