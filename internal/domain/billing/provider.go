package billing

import (
	"context"
	"time"
)

// ProviderSubscription is the slice of the provider's subscription object the
// reconciliation needs.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	Status           string
	CurrentPeriodEnd *time.Time
}

// IsEnded reports whether the provider considers the subscription finished
func (s *ProviderSubscription) IsEnded() bool {
	return s.Status == "canceled" || s.Status == "incomplete_expired"
}

// Provider is the payment provider API used during reconciliation
type Provider interface {
	// FetchSubscription returns current details of a provider subscription.
	// Failures are marked ierr.ErrUpstreamUnavailable.
	FetchSubscription(ctx context.Context, providerSubscriptionID string) (*ProviderSubscription, error)
}

// WebhookVerifier authenticates raw webhook payloads
type WebhookVerifier interface {
	// Verify checks the signature header against the exact raw payload and
	// returns the decoded event. Failures are marked ierr.ErrSignatureMalformed
	// or ierr.ErrSignatureMismatch.
	Verify(payload []byte, signatureHeader string) (Event, error)
}
