package service

import "time"

// Policy describes the rate limit applied to one auth flow.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Rate limit policies per flow. Login and the post-reset forgiveness key
// off the normalized email; registration, reset, and verification flows
// key off the client IP; change-password keys off the user ID. The
// email/IP asymmetry between login and registration is inherited from the
// application and kept as-is.
var (
	policyLogin          = Policy{MaxAttempts: 5, Window: 15 * time.Minute}
	policyRegister       = Policy{MaxAttempts: 5, Window: time.Hour}
	policyForgotPassword = Policy{MaxAttempts: 3, Window: time.Hour}
	policyResetPassword  = Policy{MaxAttempts: 5, Window: time.Hour}
	policyVerifyEmail    = Policy{MaxAttempts: 10, Window: time.Hour}
	policyChangePassword = Policy{MaxAttempts: 5, Window: time.Hour}
)

func loginKey(email string) string {
	return "auth:" + email
}

func registerKey(ip string) string {
	return "register:" + ip
}

func forgotPasswordKey(ip string) string {
	return "forgot-password:" + ip
}

func resetPasswordKey(ip string) string {
	return "reset-password:" + ip
}

func verifyEmailKey(ip string) string {
	return "verify-email:" + ip
}

func changePasswordKey(userID string) string {
	return "change-password:" + userID
}
