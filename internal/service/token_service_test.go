package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/studydesk-server/internal/mocks"
	"github.com/studydesk/studydesk-server/internal/model"
	"github.com/studydesk/studydesk-server/internal/testutil"
)

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	store := new(mocks.TokenStore)
	s := NewTokenService(store, testutil.MakeNoopLogger())
	s.now = func() time.Time { return now }

	var stored model.VerificationToken
	store.On("Replace", ctx, mock.AnythingOfType("model.VerificationToken")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(model.VerificationToken)
		}).
		Return(nil)

	token, err := s.Issue(ctx, "user@example.com", VerificationTokenTTL)

	require.NoError(t, err)
	assert.Len(t, token, 64)
	for _, r := range token {
		assert.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected character %q", r)
	}
	assert.Equal(t, "user@example.com", stored.Identifier)
	assert.Equal(t, token, stored.Token)
	assert.Equal(t, now.Add(VerificationTokenTTL), stored.ExpiresAt)
	store.AssertExpectations(t)
}

func TestGenerateToken_UniformDistribution(t *testing.T) {
	// Naive byte%62 mapping over-represents the first 8 alphabet
	// characters (256%62 != 0). With rejection sampling each character
	// lands in the first 8 with probability 8/62 ≈ 0.129; the biased
	// mapping produces 0.156, far outside the delta.
	const sample = 100000

	token, err := generateToken(sample)
	require.NoError(t, err)
	require.Len(t, token, sample)

	lowRange := 0
	for _, r := range token {
		if strings.ContainsRune(tokenAlphabet[:8], r) {
			lowRange++
		}
	}

	assert.InDelta(t, 8.0/62.0, float64(lowRange)/sample, 0.01)
}

func TestTokenService_Issue_TokensAreUnique(t *testing.T) {
	ctx := context.Background()

	store := new(mocks.TokenStore)
	store.On("Replace", ctx, mock.AnythingOfType("model.VerificationToken")).Return(nil)

	s := NewTokenService(store, testutil.MakeNoopLogger())

	first, err := s.Issue(ctx, "user@example.com", ResetTokenTTL)
	require.NoError(t, err)
	second, err := s.Issue(ctx, "user@example.com", ResetTokenTTL)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenService_Issue_StoreError(t *testing.T) {
	ctx := context.Background()

	store := new(mocks.TokenStore)
	store.On("Replace", ctx, mock.AnythingOfType("model.VerificationToken")).
		Return(errors.New("connection refused"))

	s := NewTokenService(store, testutil.MakeNoopLogger())

	token, err := s.Issue(ctx, "user@example.com", ResetTokenTTL)

	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestTokenService_Consume_Valid(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	store := new(mocks.TokenStore)
	store.On("ConsumeByToken", ctx, "sometoken").Return(model.VerificationToken{
		Identifier: "user@example.com",
		Token:      "sometoken",
		ExpiresAt:  now.Add(time.Hour),
	}, nil)

	s := NewTokenService(store, testutil.MakeNoopLogger())
	s.now = func() time.Time { return now }

	identifier, err := s.Consume(ctx, "sometoken")

	require.NoError(t, err)
	assert.Equal(t, "user@example.com", identifier)
	store.AssertExpectations(t)
}

func TestTokenService_Consume_NotFound(t *testing.T) {
	ctx := context.Background()

	store := new(mocks.TokenStore)
	store.On("ConsumeByToken", ctx, "missing").Return(model.VerificationToken{}, model.ErrNotFound)

	s := NewTokenService(store, testutil.MakeNoopLogger())

	identifier, err := s.Consume(ctx, "missing")

	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.Empty(t, identifier)
}

func TestTokenService_Consume_Expired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	store := new(mocks.TokenStore)
	store.On("ConsumeByToken", ctx, "stale").Return(model.VerificationToken{
		Identifier: "user@example.com",
		Token:      "stale",
		ExpiresAt:  now.Add(-time.Minute),
	}, nil)

	s := NewTokenService(store, testutil.MakeNoopLogger())
	s.now = func() time.Time { return now }

	identifier, err := s.Consume(ctx, "stale")

	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.Empty(t, identifier)
}

func TestTokenService_Consume_StoreError(t *testing.T) {
	ctx := context.Background()

	store := new(mocks.TokenStore)
	store.On("ConsumeByToken", ctx, "tok").Return(model.VerificationToken{}, errors.New("connection refused"))

	s := NewTokenService(store, testutil.MakeNoopLogger())

	_, err := s.Consume(ctx, "tok")

	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidToken)
}
