// Package mail implements the outbound email seam. Real delivery is out
// of scope for the server core, so the only implementation writes the
// would-be message to the log.
package mail

import (
	"context"

	"github.com/studydesk/studydesk-server/internal/logger"
	"github.com/studydesk/studydesk-server/internal/model"
)

var _ model.Mailer = (*LogMailer)(nil)

// LogMailer logs each message instead of sending it. The token appears in
// the log line so a deployment without a real mailer can still complete
// the verification and reset flows by hand.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *logger.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendVerificationEmail logs the email verification token for the address.
func (m *LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.logger.Info("mailer: verification email", "email", email, "token", token)
	return nil
}

// SendPasswordResetEmail logs the password reset token for the address.
func (m *LogMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.logger.Info("mailer: password reset email", "email", email, "token", token)
	return nil
}
