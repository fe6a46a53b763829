package stripe

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookVerifier authenticates Stripe webhook deliveries and decodes them
// into billing events
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
	logger    *logger.Logger
}

func NewWebhookVerifier(cfg *config.Configuration, logger *logger.Logger) *WebhookVerifier {
	tolerance := cfg.Stripe.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	return &WebhookVerifier{
		secret:    cfg.Stripe.WebhookSecret,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Verify checks the Stripe-Signature header against the exact raw payload.
// A header that cannot be parsed is malformed; a parsed header with no
// matching signature, or one outside the tolerance window, is a mismatch.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (billing.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, ierr.NewError("missing webhook signature").
			WithHint("Invalid signature").
			Mark(ierr.ErrSignatureMalformed)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		v.logger.Warnw("Stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid signature").
			Mark(signatureFailure(err))
	}

	return toBillingEvent(&event, v.logger), nil
}

func signatureFailure(err error) error {
	switch {
	case errors.Is(err, webhook.ErrNoValidSignature), errors.Is(err, webhook.ErrTooOld):
		return ierr.ErrSignatureMismatch
	default:
		// unparsable header or a payload that is not an event
		return ierr.ErrSignatureMalformed
	}
}

// toBillingEvent converts a verified Stripe event into its billing variant.
// An object that cannot be decoded leaves the variant's fields empty.
func toBillingEvent(event *stripe.Event, log *logger.Logger) billing.Event {
	envelope := billing.Envelope{
		ID:      event.ID,
		Type:    billing.EventKind(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch envelope.Type {
	case billing.EventKindCheckoutCompleted:
		result := &billing.CheckoutCompleted{Envelope: envelope}
		var session stripe.CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			log.Warnw("failed to decode checkout session", "event_id", event.ID, "error", err)
			return result
		}
		result.CustomerEmail = checkoutEmail(&session)
		if session.Customer != nil {
			result.ProviderCustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			result.ProviderSubscriptionID = session.Subscription.ID
		}
		return result

	case billing.EventKindSubscriptionUpdated, billing.EventKindSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			log.Warnw("failed to decode subscription", "event_id", event.ID, "error", err)
		}
		if envelope.Type == billing.EventKindSubscriptionUpdated {
			return &billing.SubscriptionUpdated{Envelope: envelope, ProviderSubscriptionID: sub.ID}
		}
		return &billing.SubscriptionDeleted{Envelope: envelope, ProviderSubscriptionID: sub.ID}

	default:
		return &billing.Unhandled{Envelope: envelope}
	}
}

// checkoutEmail prefers the email the customer typed at checkout over the
// one the session was created with
func checkoutEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}
