package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/studydesk/studydesk-server/internal/model"
)

// TokenStore is a testify mock for model.TokenStore.
type TokenStore struct {
	mock.Mock
}

func (m *TokenStore) Replace(ctx context.Context, token model.VerificationToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *TokenStore) ConsumeByToken(ctx context.Context, token string) (model.VerificationToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(model.VerificationToken), args.Error(1)
}
