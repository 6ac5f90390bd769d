package model

import "github.com/google/uuid"

// SessionManager signs and validates session tokens issued at the boundary
// after a successful login or registration.
type SessionManager interface {
	GenerateSessionToken(identity Identity) (string, error)
	ParseSessionToken(token string) (uuid.UUID, error)
}
