package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/sanctuary/sanctuary-api/internal/api/v1"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/rest/middleware"
	"github.com/sanctuary/sanctuary-api/internal/service"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Auth    *v1.AuthHandler
	Webhook *v1.WebhookHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, sessionService service.SessionService) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(middleware.NotFoundHandler)
	router.NoMethod(middleware.NotFoundHandler)

	router.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.SentryScopeMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	auth := router.Group("/auth")
	auth.Use(middleware.AuthenticateMiddleware(sessionService, logger))
	{
		auth.GET("/me", handlers.Auth.Me)
	}

	router.POST(cfg.Server.WebhookPath, handlers.Webhook.HandleStripeWebhook)

	return router
}
