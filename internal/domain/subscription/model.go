package subscription

import (
	"time"

	"github.com/sanctuary/sanctuary-api/internal/types"
)

// Subscription is the locally persisted billing state of a user.
// It is created by a completed checkout and afterwards only updated in place,
// correlated by ProviderSubscriptionID.
type Subscription struct {
	ID                     string                   `db:"id" json:"id"`
	UserID                 string                   `db:"user_id" json:"user_id"`
	Plan                   types.PlanTier           `db:"plan" json:"plan"`
	Status                 types.SubscriptionStatus `db:"status" json:"status"`
	ProviderCustomerID     string                   `db:"provider_customer_id" json:"provider_customer_id"`
	ProviderSubscriptionID string                   `db:"provider_subscription_id" json:"provider_subscription_id"`
	CurrentPeriodEnd       *time.Time               `db:"current_period_end" json:"current_period_end,omitempty"`
	CreatedAt              time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time                `db:"updated_at" json:"updated_at"`
}

// NewActive builds the record written for a completed checkout
func NewActive(userID string, plan types.PlanTier, customerID, subscriptionID string, periodEnd *time.Time) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_RECORD),
		UserID:                 userID,
		Plan:                   plan,
		Status:                 types.SubscriptionStatusActive,
		ProviderCustomerID:     customerID,
		ProviderSubscriptionID: subscriptionID,
		CurrentPeriodEnd:       periodEnd,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// IsActive reports whether the record grants its plan
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == types.SubscriptionStatusActive
}

// Update is a partial in-place change of a record found by provider subscription id.
// Nil fields are left untouched.
type Update struct {
	Plan             *types.PlanTier
	Status           *types.SubscriptionStatus
	CurrentPeriodEnd *time.Time
}
