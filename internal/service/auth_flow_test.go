package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/studydesk/studydesk-server/internal/authlog"
	"github.com/studydesk/studydesk-server/internal/model"
	"github.com/studydesk/studydesk-server/internal/ratelimit"
	"github.com/studydesk/studydesk-server/internal/testutil"
)

// memoryUserStore is a map-backed UserStore for whole-flow tests.
type memoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[uuid.UUID]model.User)}
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memoryUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *memoryUserStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user
	return user, nil
}

func (s *memoryUserStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = &passwordHash
	s.users[id] = u
	return nil
}

func (s *memoryUserStore) MarkVerified(_ context.Context, email string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Email == email {
			u.EmailVerifiedAt = &when
			s.users[id] = u
			return nil
		}
	}
	return model.ErrNotFound
}

// memoryTokenStore is a map-backed TokenStore keyed the way the SQL store
// is: token value for lookup, identifier for replacement.
type memoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]model.VerificationToken
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: make(map[string]model.VerificationToken)}
}

func (s *memoryTokenStore) Replace(_ context.Context, token model.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for value, t := range s.tokens {
		if t.Identifier == token.Identifier {
			delete(s.tokens, value)
		}
	}
	s.tokens[token.Token] = token
	return nil
}

func (s *memoryTokenStore) ConsumeByToken(_ context.Context, token string) (model.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return model.VerificationToken{}, model.ErrNotFound
	}
	delete(s.tokens, token)
	return t, nil
}

func (s *memoryTokenStore) byIdentifier(identifier string) (model.VerificationToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		if t.Identifier == identifier {
			return t, true
		}
	}
	return model.VerificationToken{}, false
}

type flowFixture struct {
	users      *memoryUserStore
	tokenStore *memoryTokenStore
	events     *authlog.Log
	mailer     *capturingMailer
	clock      *fakeClock
	auth       *Auth
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	log := testutil.MakeNoopLogger()
	clk := newFakeClock()

	limiter := ratelimit.New(log,
		ratelimit.WithClock(clk.Now),
		ratelimit.WithSweepInterval(time.Hour))
	t.Cleanup(limiter.Stop)

	events := authlog.New(log,
		authlog.WithClock(clk.Now),
		authlog.WithSweepInterval(time.Hour))
	t.Cleanup(events.Stop)

	users := newMemoryUserStore()
	tokenStore := newMemoryTokenStore()
	tokens := NewTokenService(tokenStore, log)
	tokens.now = clk.Now

	mailer := newCapturingMailer()

	auth := NewAuth(users, tokens, limiter, events, mailer, log, bcrypt.MinCost)
	auth.now = clk.Now

	return &flowFixture{
		users:      users,
		tokenStore: tokenStore,
		events:     events,
		mailer:     mailer,
		clock:      clk,
		auth:       auth,
	}
}

func TestAuthFlow_RegisterLoginLockout(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)

	identity, err := f.auth.Register(ctx, RegisterParams{
		Email:    "student@example.com",
		Name:     "Student",
		Password: "passw0rd",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	got, err := f.auth.Login(ctx, LoginParams{Email: "student@example.com", Password: "passw0rd", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)

	for i := 0; i < 5; i++ {
		_, err := f.auth.Login(ctx, LoginParams{Email: "student@example.com", Password: "wrong", IP: "10.0.0.2"})
		require.EqualError(t, err, "invalid email or password", "attempt %d", i+1)
	}

	_, err = f.auth.Login(ctx, LoginParams{Email: "student@example.com", Password: "passw0rd", IP: "10.0.0.1"})
	var rlErr *model.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.InDelta(t, (15 * time.Minute).Seconds(), rlErr.RetryAfter.Seconds(), 1)

	f.clock.Advance(15*time.Minute + time.Second)

	_, err = f.auth.Login(ctx, LoginParams{Email: "student@example.com", Password: "passw0rd", IP: "10.0.0.1"})
	assert.NoError(t, err)
}

func TestAuthFlow_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)

	_, err := f.auth.Register(ctx, RegisterParams{
		Email:    "student@example.com",
		Password: "oldpass12",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "student@example.com", "10.0.0.1"))

	stored, ok := f.tokenStore.byIdentifier("reset:student@example.com")
	require.True(t, ok)
	assert.Len(t, stored.Token, 64)

	// Issuing again replaces the first token.
	require.NoError(t, f.auth.RequestPasswordReset(ctx, "student@example.com", "10.0.0.1"))
	replaced, ok := f.tokenStore.byIdentifier("reset:student@example.com")
	require.True(t, ok)
	assert.NotEqual(t, stored.Token, replaced.Token)

	// The reset link the user receives carries the live token.
	delivered, ok := f.mailer.resetFor("student@example.com")
	require.True(t, ok)
	require.Equal(t, replaced.Token, delivered)

	require.NoError(t, f.auth.ResetPassword(ctx, delivered, "newpass12", "10.0.0.1"))

	_, err = f.auth.Login(ctx, LoginParams{Email: "student@example.com", Password: "oldpass12", IP: "10.0.0.1"})
	assert.EqualError(t, err, "invalid email or password")

	_, err = f.auth.Login(ctx, LoginParams{Email: "student@example.com", Password: "newpass12", IP: "10.0.0.1"})
	assert.NoError(t, err)

	// The token was consumed: a replay fails.
	err = f.auth.ResetPassword(ctx, replaced.Token, "another12", "10.0.0.1")
	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, model.CodeInvalidToken, authErr.Code)
}

func TestAuthFlow_ResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)

	_, err := f.auth.Register(ctx, RegisterParams{
		Email:    "student@example.com",
		Password: "oldpass12",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "student@example.com", "10.0.0.1"))
	stored, ok := f.tokenStore.byIdentifier("reset:student@example.com")
	require.True(t, ok)

	f.clock.Advance(ResetTokenTTL + time.Minute)

	err = f.auth.ResetPassword(ctx, stored.Token, "newpass12", "10.0.0.1")
	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, model.CodeInvalidToken, authErr.Code)
}

func TestAuthFlow_EmailVerification(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)

	_, err := f.auth.Register(ctx, RegisterParams{
		Email:    "student@example.com",
		Password: "passw0rd",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	stored, ok := f.tokenStore.byIdentifier("student@example.com")
	require.True(t, ok)
	require.False(t, strings.HasPrefix(stored.Identifier, model.ResetIdentifierPrefix))

	delivered, ok := f.mailer.verificationFor("student@example.com")
	require.True(t, ok)
	require.Equal(t, stored.Token, delivered)

	identity, err := f.auth.VerifyEmail(ctx, delivered)
	require.NoError(t, err)
	require.NotNil(t, identity.EmailVerifiedAt)
	assert.Equal(t, f.clock.Now(), *identity.EmailVerifiedAt)

	// Verified accounts do not get new verification tokens.
	require.NoError(t, f.auth.RequestEmailVerification(ctx, "student@example.com", "10.0.0.1"))
	_, ok = f.tokenStore.byIdentifier("student@example.com")
	assert.False(t, ok)
}
