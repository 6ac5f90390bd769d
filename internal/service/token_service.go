package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/studydesk/studydesk-server/internal/logger"
	"github.com/studydesk/studydesk-server/internal/model"
)

// Token TTLs for the two identifier namespaces sharing the store.
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
)

const (
	tokenLength   = 64
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// TokenService issues and consumes single-use, expiring verification and
// password reset tokens. It composes the TokenStore.
type TokenService struct {
	store  model.TokenStore
	logger *logger.Logger
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(store model.TokenStore, logger *logger.Logger) *TokenService {
	return &TokenService{store: store, logger: logger, now: time.Now}
}

// Issue generates an opaque random token for the identifier and persists
// it with the given TTL. Any prior token for the same identifier is
// replaced, so at most one token per identifier is ever live.
func (s *TokenService) Issue(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
	token, err := generateToken(tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	vt := model.VerificationToken{
		Identifier: identifier,
		Token:      token,
		ExpiresAt:  s.now().Add(ttl),
	}

	if err := s.store.Replace(ctx, vt); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}

	s.logger.Debug("token issued", "identifier", identifier, "expires_at", vt.ExpiresAt)

	return token, nil
}

// Consume looks the token up by its value, removes it, and returns its
// identifier. Absent and expired tokens both yield ErrInvalidToken; an
// expired row is removed as a side effect of the lookup.
func (s *TokenService) Consume(ctx context.Context, token string) (string, error) {
	vt, err := s.store.ConsumeByToken(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return "", model.ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("consume token: %w", err)
	}

	if s.now().After(vt.ExpiresAt) {
		s.logger.Debug("expired token presented", "identifier", vt.Identifier)
		return "", model.ErrInvalidToken
	}

	return vt.Identifier, nil
}

// generateToken draws token characters with rejection sampling: 256 is
// not a multiple of the alphabet size, so a plain modulo would skew
// towards the low end of the alphabet.
func generateToken(length int) (string, error) {
	// Largest multiple of len(tokenAlphabet) that fits in a byte.
	limit := byte(256 - 256%len(tokenAlphabet))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
