package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sanctuary/sanctuary-api/internal/api/dto"
	"github.com/sanctuary/sanctuary-api/internal/config"
)

// ISO 8601 with millisecond precision in UTC
const healthTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type HealthHandler struct {
	serviceName string
}

func NewHealthHandler(cfg *config.Configuration) *HealthHandler {
	return &HealthHandler{
		serviceName: cfg.Server.ServiceName,
	}
}

// Health reports liveness, it does not touch any dependency
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		OK:      true,
		Service: h.serviceName,
		TS:      time.Now().UTC().Format(healthTimeFormat),
	})
}
