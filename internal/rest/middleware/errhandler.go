package middleware

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
)

const (
	msgMissingToken     = "Missing token"
	msgInvalidToken     = "Invalid token"
	msgInvalidSignature = "Invalid signature"
	msgNotFound         = "Not found"
	msgServerError      = "Server error"
)

// ErrorHandler renders the last error attached to the context as
// {ok:false, error:<message>}. Server side failures never leak details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		if status >= http.StatusInternalServerError {
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
		}

		c.JSON(status, ierr.ErrorResponse{
			OK:    false,
			Error: displayMessage(err, status),
		})
	}
}

func displayMessage(err error, status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return msgServerError
	case ierr.Is(err, ierr.ErrMissingToken):
		return msgMissingToken
	case ierr.IsAuth(err):
		return msgInvalidToken
	case ierr.IsSignature(err):
		return msgInvalidSignature
	case status == http.StatusNotFound:
		return msgNotFound
	}

	// Get the first non-empty hint - GetAllHints is post-order traversal
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return http.StatusText(status)
}

// NotFoundHandler answers unmatched routes and methods
func NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, ierr.ErrorResponse{OK: false, Error: msgNotFound})
}
