package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sanctuary/sanctuary-api/internal/api/dto"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/service"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// WebhookHandler receives payment provider webhooks
type WebhookHandler struct {
	verifier         billing.WebhookVerifier
	reconcileService service.ReconcileService
	maxBodySize      int64
	logger           *logger.Logger
}

func NewWebhookHandler(
	cfg *config.Configuration,
	verifier billing.WebhookVerifier,
	reconcileService service.ReconcileService,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:         verifier,
		reconcileService: reconcileService,
		maxBodySize:      cfg.Server.MaxBodySize,
		logger:           logger,
	}
}

// HandleStripeWebhook verifies the signature over the raw body, reconciles
// the event and acknowledges it. A 500 makes the provider redeliver.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// Read the raw request body, the signature covers these exact bytes
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warnw("webhook body too large", "limit", tooLarge.Limit)
			c.Error(ierr.WithError(err).
				WithHint("Request body too large").
				Mark(ierr.ErrValidation))
			return
		}
		h.logger.Errorw("failed to read request body", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.verifier.Verify(body, c.GetHeader(types.HeaderStripeSignature))
	if err != nil {
		c.Error(err)
		return
	}

	outcome, err := h.reconcileService.Reconcile(c.Request.Context(), event)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Debugw("webhook acknowledged",
		"event_id", event.EventID(),
		"event_kind", event.Kind(),
		"outcome", outcome,
	)
	c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}
