package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studydesk/studydesk-server/internal/authlog"
	"github.com/studydesk/studydesk-server/internal/logger"
	"github.com/studydesk/studydesk-server/internal/model"
	"github.com/studydesk/studydesk-server/internal/ratelimit"
)

const defaultBcryptCost = 12

// RegisterParams carries a registration request.
type RegisterParams struct {
	Email    string
	Name     string
	Password string
	IP       string
}

// LoginParams carries a login request.
type LoginParams struct {
	Email    string
	Password string
	IP       string
}

// Auth orchestrates the authentication flows: it composes the rate
// limiter, the credential store, the event log, the token issuer, and the
// mailer seam.
type Auth struct {
	users      model.UserStore
	tokens     *TokenService
	limiter    *ratelimit.Limiter
	events     *authlog.Log
	mailer     model.Mailer
	logger     *logger.Logger
	bcryptCost int
	now        func() time.Time
}

// NewAuth creates a new Auth service. A bcryptCost below the library
// minimum falls back to the application default of 12.
func NewAuth(
	users model.UserStore,
	tokens *TokenService,
	limiter *ratelimit.Limiter,
	events *authlog.Log,
	mailer model.Mailer,
	logger *logger.Logger,
	bcryptCost int,
) *Auth {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = defaultBcryptCost
	}
	return &Auth{
		users:      users,
		tokens:     tokens,
		limiter:    limiter,
		events:     events,
		mailer:     mailer,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a credential record and issues an email verification
// token. Registration attempts are limited per client IP.
func (a *Auth) Register(ctx context.Context, params RegisterParams) (model.Identity, error) {
	email := model.NormalizeEmail(params.Email)

	a.logger.Debug("Auth service: starting registration", "email", email)

	res := a.limiter.Check(registerKey(params.IP), policyRegister.MaxAttempts, policyRegister.Window)
	if !res.Allowed {
		return model.Identity{}, &model.RateLimitError{RetryAfter: res.RetryAfter}
	}

	if err := validatePassword(params.Password); err != nil {
		return model.Identity{}, err
	}

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		a.logger.Info("Auth service: email already registered", "email", email)
		return model.Identity{}, model.NewErrEmailTaken(email)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.bcryptCost)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hash)
	now := a.now()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: &hashStr,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := a.users.Create(ctx, user)
	if err != nil {
		// The store maps a concurrent duplicate insert to EMAIL_TAKEN; pass
		// it through so the race loses with a 409, not a 500.
		var authErr *model.AuthError
		if errors.As(err, &authErr) {
			a.logger.Info("Auth service: email already registered", "email", email)
			return model.Identity{}, authErr
		}
		a.logger.Error("Auth service: failed to create user", "email", email, "error", err.Error())
		return model.Identity{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.events.Record(model.AuthEvent{
		Type:   model.EventAccountCreated,
		Email:  email,
		UserID: created.ID,
		IP:     params.IP,
	})

	// A failed token issue or delivery does not fail the registration; the
	// user can request a fresh token later.
	if verificationToken, err := a.tokens.Issue(ctx, email, VerificationTokenTTL); err != nil {
		a.logger.Error("Auth service: failed to issue verification token", "email", email, "error", err.Error())
	} else {
		if err := a.mailer.SendVerificationEmail(ctx, email, verificationToken); err != nil {
			a.logger.Error("Auth service: failed to deliver verification email", "email", email, "error", err.Error())
		}
		a.events.Record(model.AuthEvent{
			Type:   model.EventEmailVerificationSent,
			Email:  email,
			UserID: created.ID,
			IP:     params.IP,
		})
	}

	a.logger.Info("Auth service: registration completed", "email", email, "user_id", created.ID)

	return created.Identity(), nil
}

// Login runs the login state machine: rate check, credential lookup,
// password verification. Unknown emails, provider-only accounts, and
// wrong passwords all produce the same generic error; only the event log
// records why.
func (a *Auth) Login(ctx context.Context, params LoginParams) (model.Identity, error) {
	email := model.NormalizeEmail(params.Email)

	a.logger.Debug("Auth service: starting login", "email", email)

	res := a.limiter.Check(loginKey(email), policyLogin.MaxAttempts, policyLogin.Window)
	if !res.Allowed {
		a.events.Record(model.AuthEvent{
			Type:  model.EventLoginRateLimited,
			Email: email,
			IP:    params.IP,
			Metadata: map[string]string{
				"retry_after_ms": strconv.FormatInt(res.RetryAfter.Milliseconds(), 10),
			},
		})
		return model.Identity{}, &model.RateLimitError{RetryAfter: res.RetryAfter}
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	if errors.Is(err, model.ErrNotFound) || user.PasswordHash == nil {
		a.events.Record(model.AuthEvent{
			Type:     model.EventLoginFailed,
			Email:    email,
			IP:       params.IP,
			Metadata: map[string]string{"reason": model.ReasonUserNotFound},
		})
		a.events.DetectSuspicious(email)
		return model.Identity{}, model.NewErrInvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(params.Password)); err != nil {
		a.events.Record(model.AuthEvent{
			Type:     model.EventLoginFailed,
			Email:    email,
			UserID:   user.ID,
			IP:       params.IP,
			Metadata: map[string]string{"reason": model.ReasonInvalidPassword},
		})
		a.events.DetectSuspicious(email)
		return model.Identity{}, model.NewErrInvalidCredentials()
	}

	a.limiter.Reset(loginKey(email))
	a.events.Record(model.AuthEvent{
		Type:   model.EventLoginSuccess,
		Email:  email,
		UserID: user.ID,
		IP:     params.IP,
	})

	a.logger.Info("Auth service: login completed", "email", email, "user_id", user.ID)

	return user.Identity(), nil
}

// Logout records the logout event. Session tokens are stateless, so the
// token itself is simply discarded by the client.
func (a *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get user by id: %w", err)
	}

	a.events.Record(model.AuthEvent{
		Type:   model.EventLogout,
		Email:  user.Email,
		UserID: userID,
	})

	return nil
}

// GetIdentity returns the boundary-safe view of the user.
func (a *Auth) GetIdentity(ctx context.Context, userID uuid.UUID) (model.Identity, error) {
	user, err := a.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, model.ErrNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user.Identity(), nil
}

// RequestPasswordReset issues a reset token for the email when an account
// exists. The result is identical either way so the endpoint does not
// reveal registered addresses.
func (a *Auth) RequestPasswordReset(ctx context.Context, email, ip string) error {
	email = model.NormalizeEmail(email)

	a.logger.Debug("Auth service: password reset requested", "email", email)

	res := a.limiter.Check(forgotPasswordKey(ip), policyForgotPassword.MaxAttempts, policyForgotPassword.Window)
	if !res.Allowed {
		return &model.RateLimitError{RetryAfter: res.RetryAfter}
	}

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.events.Record(model.AuthEvent{
			Type:     model.EventPasswordResetRequest,
			Email:    email,
			IP:       ip,
			Metadata: map[string]string{"token_generated": "false"},
		})
		a.events.DetectSuspicious(email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	resetToken, err := a.tokens.Issue(ctx, model.ResetIdentifier(email), ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	if err := a.mailer.SendPasswordResetEmail(ctx, email, resetToken); err != nil {
		a.logger.Error("Auth service: failed to deliver reset email", "email", email, "error", err.Error())
	}

	a.events.Record(model.AuthEvent{
		Type:     model.EventPasswordResetRequest,
		Email:    email,
		UserID:   user.ID,
		IP:       ip,
		Metadata: map[string]string{"token_generated": "true"},
	})
	a.events.DetectSuspicious(email)

	a.logger.Info("Auth service: reset token issued", "email", email)

	return nil
}

// ResetPassword consumes a reset token and overwrites the credential's
// password hash. A successful reset also forgives the email's login rate
// limit so the owner is not locked out by the attempts that preceded the
// reset.
func (a *Auth) ResetPassword(ctx context.Context, tokenValue, newPassword, ip string) error {
	a.logger.Debug("Auth service: completing password reset")

	res := a.limiter.Check(resetPasswordKey(ip), policyResetPassword.MaxAttempts, policyResetPassword.Window)
	if !res.Allowed {
		return &model.RateLimitError{RetryAfter: res.RetryAfter}
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	identifier, err := a.tokens.Consume(ctx, tokenValue)
	if errors.Is(err, model.ErrInvalidToken) || (err == nil && !strings.HasPrefix(identifier, model.ResetIdentifierPrefix)) {
		a.events.Record(model.AuthEvent{
			Type:     model.EventPasswordResetFailed,
			IP:       ip,
			Metadata: map[string]string{"reason": model.ReasonInvalidToken},
		})
		return model.NewErrTokenInvalid()
	}
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	email := strings.TrimPrefix(identifier, model.ResetIdentifierPrefix)

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.events.Record(model.AuthEvent{
			Type:     model.EventPasswordResetFailed,
			Email:    email,
			IP:       ip,
			Metadata: map[string]string{"reason": model.ReasonUserNotFound},
		})
		return model.NewErrTokenInvalid()
	}
	if err != nil {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	a.limiter.Reset(loginKey(email))
	a.events.Record(model.AuthEvent{
		Type:   model.EventPasswordResetSuccess,
		Email:  email,
		UserID: user.ID,
		IP:     ip,
	})

	a.logger.Info("Auth service: password reset completed", "email", email)

	return nil
}

// ChangePassword is the authenticated variant: the caller proves the
// current password before the new one is stored.
func (a *Auth) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	a.logger.Debug("Auth service: changing password", "user_id", userID)

	res := a.limiter.Check(changePasswordKey(userID.String()), policyChangePassword.MaxAttempts, policyChangePassword.Window)
	if !res.Allowed {
		return &model.RateLimitError{RetryAfter: res.RetryAfter}
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := a.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get user by id: %w", err)
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword)) != nil {
		a.events.Record(model.AuthEvent{
			Type:     model.EventPasswordChangeFailed,
			Email:    user.Email,
			UserID:   userID,
			Metadata: map[string]string{"reason": model.ReasonInvalidPassword},
		})
		return model.NewErrPasswordMismatch()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	a.events.Record(model.AuthEvent{
		Type:   model.EventPasswordChanged,
		Email:  user.Email,
		UserID: userID,
	})
	a.events.Record(model.AuthEvent{
		Type:     model.EventSessionInvalidated,
		Email:    user.Email,
		UserID:   userID,
		Metadata: map[string]string{"reason": "password_changed"},
	})

	a.logger.Info("Auth service: password changed", "user_id", userID)

	return nil
}

// RequestEmailVerification issues a fresh 24h verification token for the
// email, replacing any prior one. Unknown and already-verified addresses
// are a silent no-op.
func (a *Auth) RequestEmailVerification(ctx context.Context, email, ip string) error {
	email = model.NormalizeEmail(email)

	a.logger.Debug("Auth service: email verification requested", "email", email)

	res := a.limiter.Check(verifyEmailKey(ip), policyVerifyEmail.MaxAttempts, policyVerifyEmail.Window)
	if !res.Allowed {
		return &model.RateLimitError{RetryAfter: res.RetryAfter}
	}

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user by email: %w", err)
	}
	if user.EmailVerifiedAt != nil {
		return nil
	}

	verificationToken, err := a.tokens.Issue(ctx, email, VerificationTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}
	if err := a.mailer.SendVerificationEmail(ctx, email, verificationToken); err != nil {
		a.logger.Error("Auth service: failed to deliver verification email", "email", email, "error", err.Error())
	}

	a.events.Record(model.AuthEvent{
		Type:   model.EventEmailVerificationSent,
		Email:  email,
		UserID: user.ID,
		IP:     ip,
	})

	return nil
}

// VerifyEmail consumes a verification token and stamps the credential's
// verified timestamp.
func (a *Auth) VerifyEmail(ctx context.Context, tokenValue string) (model.Identity, error) {
	a.logger.Debug("Auth service: verifying email")

	identifier, err := a.tokens.Consume(ctx, tokenValue)
	if errors.Is(err, model.ErrInvalidToken) {
		return model.Identity{}, model.NewErrTokenInvalid()
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to consume verification token: %w", err)
	}
	if strings.HasPrefix(identifier, model.ResetIdentifierPrefix) {
		// A reset token is not proof of mailbox ownership.
		return model.Identity{}, model.NewErrTokenInvalid()
	}

	if err := a.users.MarkVerified(ctx, identifier, a.now()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Identity{}, model.NewErrTokenInvalid()
		}
		return model.Identity{}, fmt.Errorf("failed to mark email verified: %w", err)
	}

	user, err := a.users.GetByEmail(ctx, identifier)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	a.events.Record(model.AuthEvent{
		Type:   model.EventEmailVerified,
		Email:  identifier,
		UserID: user.ID,
	})

	a.logger.Info("Auth service: email verified", "email", identifier)

	return user.Identity(), nil
}

// validatePassword enforces the application's password form rules: at
// least 8 characters with one letter and one digit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return &model.ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &model.ValidationError{Field: "password", Message: "password must contain at least one letter and one digit"}
	}

	return nil
}
