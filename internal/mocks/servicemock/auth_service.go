package servicemock

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/studydesk/studydesk-server/internal/model"
	"github.com/studydesk/studydesk-server/internal/service"
)

// AuthService is a testify mock for handler.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, params service.RegisterParams) (model.Identity, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *AuthService) Login(ctx context.Context, params service.LoginParams) (model.Identity, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *AuthService) GetIdentity(ctx context.Context, userID uuid.UUID) (model.Identity, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *AuthService) RequestPasswordReset(ctx context.Context, email, ip string) error {
	args := m.Called(ctx, email, ip)
	return args.Error(0)
}

func (m *AuthService) ResetPassword(ctx context.Context, token, newPassword, ip string) error {
	args := m.Called(ctx, token, newPassword, ip)
	return args.Error(0)
}

func (m *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

func (m *AuthService) RequestEmailVerification(ctx context.Context, email, ip string) error {
	args := m.Called(ctx, email, ip)
	return args.Error(0)
}

func (m *AuthService) VerifyEmail(ctx context.Context, token string) (model.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(model.Identity), args.Error(1)
}
