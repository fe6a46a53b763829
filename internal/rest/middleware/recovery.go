package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// RecoveryMiddleware turns a panic into the generic server error response
func RecoveryMiddleware(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Errorw("panic while handling request",
			"panic", fmt.Sprint(recovered),
			"path", c.Request.URL.Path,
			"request_id", types.GetRequestID(c.Request.Context()),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ierr.ErrorResponse{
			OK:    false,
			Error: msgServerError,
		})
	})
}
