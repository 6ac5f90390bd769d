package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the kinds of authentication events.
type EventType string

const (
	EventLoginSuccess          EventType = "LOGIN_SUCCESS"
	EventLoginFailed           EventType = "LOGIN_FAILED"
	EventLoginRateLimited      EventType = "LOGIN_RATE_LIMITED"
	EventLogout                EventType = "LOGOUT"
	EventAccountCreated        EventType = "ACCOUNT_CREATED"
	EventAccountDeleted        EventType = "ACCOUNT_DELETED"
	EventEmailVerified         EventType = "EMAIL_VERIFIED"
	EventEmailVerificationSent EventType = "EMAIL_VERIFICATION_SENT"
	EventPasswordChanged       EventType = "PASSWORD_CHANGED"
	EventPasswordChangeFailed  EventType = "PASSWORD_CHANGE_FAILED"
	EventPasswordResetRequest  EventType = "PASSWORD_RESET_REQUESTED"
	EventPasswordResetSuccess  EventType = "PASSWORD_RESET_SUCCESS"
	EventPasswordResetFailed   EventType = "PASSWORD_RESET_FAILED"
	EventSuspiciousActivity    EventType = "SUSPICIOUS_ACTIVITY"
	EventSessionInvalidated    EventType = "SESSION_INVALIDATED"
)

// Failure reasons recorded in event metadata. The user-visible error stays
// generic; the distinction lives only in the event log.
const (
	ReasonUserNotFound    = "USER_NOT_FOUND"
	ReasonInvalidPassword = "INVALID_PASSWORD"
	ReasonInvalidToken    = "INVALID_TOKEN"
)

// AuthEvent is a single append-only authentication event. Timestamp is
// assigned by the event log at record time.
type AuthEvent struct {
	Type      EventType
	Email     string
	UserID    uuid.UUID
	IP        string
	Metadata  map[string]string
	Timestamp time.Time
}
