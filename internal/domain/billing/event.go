package billing

import "time"

// EventKind is the payment provider's event type string
type EventKind string

const (
	EventKindCheckoutCompleted   EventKind = "checkout.session.completed"
	EventKindSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventKindSubscriptionDeleted EventKind = "customer.subscription.deleted"
)

// Event is a verified payment provider event. The concrete type carries the
// payload of its kind; kinds the system does not act on arrive as *Unhandled.
type Event interface {
	EventID() string
	Kind() EventKind
	CreatedAt() time.Time
}

// Envelope carries the fields every event has
type Envelope struct {
	ID      string
	Type    EventKind
	Created time.Time
}

func (e Envelope) EventID() string      { return e.ID }
func (e Envelope) Kind() EventKind      { return e.Type }
func (e Envelope) CreatedAt() time.Time { return e.Created }

// CheckoutCompleted is the first confirmation of payment for a subscription
type CheckoutCompleted struct {
	Envelope
	CustomerEmail          string
	ProviderCustomerID     string
	ProviderSubscriptionID string
}

// SubscriptionUpdated reports a change of price, period or status
type SubscriptionUpdated struct {
	Envelope
	ProviderSubscriptionID string
}

// SubscriptionDeleted reports that a subscription ended
type SubscriptionDeleted struct {
	Envelope
	ProviderSubscriptionID string
}

// Unhandled is any event kind without a state transition
type Unhandled struct {
	Envelope
}
