package middleware

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// SentryMiddleware attaches a Sentry hub to every request
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the service name and
// request id so reported faults can be matched with the access log.
// It must run after SentryMiddleware and RequestIDMiddleware.
func SentryScopeMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("service", cfg.Server.ServiceName)
			if requestID := types.GetRequestID(c.Request.Context()); requestID != "" {
				hub.Scope().SetTag("request_id", requestID)
			}
		}
		c.Next()
	}
}
