package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidToken is returned when a verification or reset token is
// absent, expired, or already used. The three cases are deliberately
// indistinguishable to the caller.
var ErrInvalidToken = errors.New("token is invalid or expired")

// Machine-readable codes carried by AuthError.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUnauthenticated    = "UNAUTHENTICATED"
)

// AuthError is a domain authentication failure the boundary translates to
// a 401-class response (409 for CodeEmailTaken).
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewErrInvalidCredentials returns the generic login failure. The wording
// is identical for unknown emails and wrong passwords so responses do not
// reveal which addresses are registered.
func NewErrInvalidCredentials() *AuthError {
	return &AuthError{Code: CodeInvalidCredentials, Message: "invalid email or password"}
}

// NewErrEmailTaken returns the registration conflict error.
func NewErrEmailTaken(email string) *AuthError {
	return &AuthError{Code: CodeEmailTaken, Message: fmt.Sprintf("email %s is already in use", email)}
}

// NewErrPasswordMismatch returns the change-password failure for a wrong
// current password.
func NewErrPasswordMismatch() *AuthError {
	return &AuthError{Code: CodePasswordMismatch, Message: "current password is incorrect"}
}

// NewErrTokenInvalid returns the failure for an absent, expired, or
// already-consumed token.
func NewErrTokenInvalid() *AuthError {
	return &AuthError{Code: CodeInvalidToken, Message: "token is invalid or expired"}
}

// RateLimitError reports a rejected attempt with the remaining wait. Only
// the wait estimate is disclosed, never the internal counters.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %s", e.RetryAfter.Round(time.Second))
}

// ValidationError reports malformed input (400-class).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
