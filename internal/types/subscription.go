package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PlanTier is the internal billing level of a user
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanStandard PlanTier = "standard"
	PlanPremium  PlanTier = "premium"
)

func (p PlanTier) String() string {
	return string(p)
}

func (p PlanTier) Validate() error {
	allowed := []PlanTier{PlanFree, PlanStandard, PlanPremium}
	if !lo.Contains(allowed, p) {
		return fmt.Errorf("invalid plan tier %q", p)
	}
	return nil
}

// SubscriptionStatus is the status of a stored subscription record.
// Records are only ever created active and flipped to canceled.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{SubscriptionStatusActive, SubscriptionStatusCanceled}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid subscription status %q", s)
	}
	return nil
}
