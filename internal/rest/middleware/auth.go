package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/service"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

const sessionKey = "session"

// AuthenticateMiddleware resolves the bearer token into a session. Failures
// abort the request with 401 through the error handler.
func AuthenticateMiddleware(sessionService service.SessionService, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessionService.ResolveSession(c.Request.Context(), c.GetHeader(types.HeaderAuthorization))
		if err != nil {
			logger.Debugw("request not authenticated", "error", err)
			c.Error(err)
			c.Abort()
			return
		}

		// Set user ID in context for request logs
		c.Request = c.Request.WithContext(types.SetUserID(c.Request.Context(), session.User.ID))
		c.Set(sessionKey, session)

		c.Next()
	}
}

// GetSession returns the session resolved by AuthenticateMiddleware
func GetSession(c *gin.Context) (*service.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*service.Session)
	return session, ok
}
