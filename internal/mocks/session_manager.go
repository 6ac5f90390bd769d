package mocks

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/studydesk/studydesk-server/internal/model"
)

// SessionManager is a testify mock for model.SessionManager.
type SessionManager struct {
	mock.Mock
}

func (m *SessionManager) GenerateSessionToken(identity model.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *SessionManager) ParseSessionToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
