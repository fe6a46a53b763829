package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sanctuary/sanctuary-api/internal/api/dto"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/rest/middleware"
)

type AuthHandler struct {
	logger *logger.Logger
}

func NewAuthHandler(logger *logger.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// Me returns the caller resolved by the authentication middleware
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.Error(ierr.NewError("no session on authenticated route").
			Mark(ierr.ErrSystem))
		return
	}

	c.JSON(http.StatusOK, dto.NewMeResponse(session))
}
