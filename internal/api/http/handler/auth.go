package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studydesk/studydesk-server/internal/logger"
	"github.com/studydesk/studydesk-server/internal/model"
	"github.com/studydesk/studydesk-server/internal/service"
)

// Wording shared by the anti-enumeration endpoints: the response is the
// same whether or not the account exists.
const genericAcceptedMessage = "if an account with that email exists, instructions have been sent"

// AuthService defines the orchestrator operations the handlers call.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) (model.Identity, error)
	Login(ctx context.Context, params service.LoginParams) (model.Identity, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	GetIdentity(ctx context.Context, userID uuid.UUID) (model.Identity, error)
	RequestPasswordReset(ctx context.Context, email, ip string) error
	ResetPassword(ctx context.Context, token, newPassword, ip string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	RequestEmailVerification(ctx context.Context, email, ip string) error
	VerifyEmail(ctx context.Context, token string) (model.Identity, error)
}

// Auth handles the HTTP endpoints for authentication.
type Auth struct {
	authService    AuthService
	sessions       model.SessionManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, sessions model.SessionManager, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		sessions:       sessions,
		contextManager: contextManager,
		logger:         logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// Register creates an account and returns the identity with a session
// token, so a fresh registration is also logged in.
func (h *Auth) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	identity, err := h.authService.Register(c.Request.Context(), service.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	sessionToken, err := h.sessions.GenerateSessionToken(identity)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": identity, "token": sessionToken})
}

// Login verifies credentials and returns the identity with a session
// token.
func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	identity, err := h.authService.Login(c.Request.Context(), service.LoginParams{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	sessionToken, err := h.sessions.GenerateSessionToken(identity)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": identity, "token": sessionToken})
}

// Logout records the logout for the authenticated user.
func (h *Auth) Logout(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user's identity.
func (h *Auth) Me(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	identity, err := h.authService.GetIdentity(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// ForgotPassword starts the password reset flow. The response does not
// reveal whether the email is registered.
func (h *Auth) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": genericAcceptedMessage})
}

// ResetPassword completes the password reset flow with a token.
func (h *Auth) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.Password, c.ClientIP()); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangePassword updates the authenticated user's password after
// verifying the current one.
func (h *Auth) ChangePassword(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// VerifyEmail consumes a verification token and returns the updated
// identity.
func (h *Auth) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	identity, err := h.authService.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// ResendVerification issues a fresh verification token. The response does
// not reveal whether the email is registered.
func (h *Auth) ResendVerification(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := h.authService.RequestEmailVerification(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": genericAcceptedMessage})
}

// Health reports process liveness.
func (h *Auth) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
