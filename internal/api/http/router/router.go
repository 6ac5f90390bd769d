package router

import (
	"github.com/gin-gonic/gin"

	"github.com/studydesk/studydesk-server/internal/api/http/handler"
	"github.com/studydesk/studydesk-server/internal/api/http/middleware"
	"github.com/studydesk/studydesk-server/internal/logger"
	"github.com/studydesk/studydesk-server/internal/model"
)

// Router assembles the HTTP API: handlers, middleware and routes.
type Router struct {
	authService    handler.AuthService
	sessions       model.SessionManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	authService handler.AuthService,
	sessions model.SessionManager,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		sessions:       sessions,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the gin engine with logging, recovery, and the auth
// routes. Session-protected routes sit behind the authenticate
// middleware.
func (r *Router) Register() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	logging := middleware.NewLogging(r.logger)
	engine.Use(logging.Handle)

	authenticate := middleware.NewAuthenticate(r.sessions, r.contextManager, r.logger)
	h := handler.NewAuth(r.authService, r.sessions, r.contextManager, r.logger)

	engine.GET("/healthz", h.Health)

	api := engine.Group("/api/auth")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/password/forgot", h.ForgotPassword)
		api.POST("/password/reset", h.ResetPassword)
		api.POST("/verify-email", h.VerifyEmail)
		api.POST("/verify-email/resend", h.ResendVerification)
	}

	protected := api.Group("", authenticate.Handle)
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/me", h.Me)
		protected.POST("/password/change", h.ChangePassword)
	}

	return engine
}
