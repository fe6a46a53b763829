package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

const (
	userKeyPrefix         = "user:"
	subscriptionKeyPrefix = "subscription:"
)

// subscriptionStore keeps records in process memory. Records are stored by
// user id with a secondary index from provider subscription id to user id.
type subscriptionStore struct {
	mu     sync.Mutex
	cache  *cache.Cache
	logger *logger.Logger
}

func NewSubscriptionRepository(logger *logger.Logger) subscription.Repository {
	return &subscriptionStore{
		cache:  cache.New(cache.NoExpiration, 0),
		logger: logger,
	}
}

func (s *subscriptionStore) GetActiveByUser(_ context.Context, userID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byUser(userID)
	if !ok || !sub.IsActive() {
		return nil, notFound("user_id", userID)
	}
	return copySubscription(sub), nil
}

func (s *subscriptionStore) GetBySubscriptionID(_ context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.bySubscriptionID(providerSubscriptionID)
	if !ok {
		return nil, notFound("provider_subscription_id", providerSubscriptionID)
	}
	return copySubscription(sub), nil
}

func (s *subscriptionStore) UpsertByUser(_ context.Context, sub *subscription.Subscription) error {
	if sub == nil || sub.UserID == "" {
		return ierr.NewError("user id is required").
			WithHint("Subscription must belong to a user").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.cache.Get(subscriptionKeyPrefix + sub.ProviderSubscriptionID); ok && owner.(string) != sub.UserID {
		return ierr.NewError("subscription already linked").
			WithHint("Subscription is already linked to another user").
			WithReportableDetails(map[string]any{"provider_subscription_id": sub.ProviderSubscriptionID}).
			Mark(ierr.ErrAlreadyExists)
	}

	stored := copySubscription(sub)
	if existing, ok := s.byUser(sub.UserID); ok {
		// the row keeps its identity, everything else is replaced
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if existing.ProviderSubscriptionID != sub.ProviderSubscriptionID {
			s.cache.Delete(subscriptionKeyPrefix + existing.ProviderSubscriptionID)
		}
	}

	s.cache.Set(userKeyPrefix+sub.UserID, stored, cache.NoExpiration)
	s.cache.Set(subscriptionKeyPrefix+sub.ProviderSubscriptionID, sub.UserID, cache.NoExpiration)
	return nil
}

func (s *subscriptionStore) UpdateStatusBySubscriptionID(ctx context.Context, providerSubscriptionID string, status types.SubscriptionStatus) error {
	return s.UpdateBySubscriptionID(ctx, providerSubscriptionID, subscription.Update{Status: &status})
}

func (s *subscriptionStore) UpdateBySubscriptionID(_ context.Context, providerSubscriptionID string, update subscription.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bySubscriptionID(providerSubscriptionID)
	if !ok {
		return notFound("provider_subscription_id", providerSubscriptionID)
	}

	updated := copySubscription(existing)
	if update.Plan != nil {
		updated.Plan = *update.Plan
	}
	if update.Status != nil {
		updated.Status = *update.Status
	}
	if update.CurrentPeriodEnd != nil {
		end := *update.CurrentPeriodEnd
		updated.CurrentPeriodEnd = &end
	}
	updated.UpdatedAt = time.Now().UTC()

	s.cache.Set(userKeyPrefix+updated.UserID, updated, cache.NoExpiration)
	return nil
}

func (s *subscriptionStore) byUser(userID string) (*subscription.Subscription, bool) {
	v, ok := s.cache.Get(userKeyPrefix + userID)
	if !ok {
		return nil, false
	}
	return v.(*subscription.Subscription), true
}

func (s *subscriptionStore) bySubscriptionID(providerSubscriptionID string) (*subscription.Subscription, bool) {
	userID, ok := s.cache.Get(subscriptionKeyPrefix + providerSubscriptionID)
	if !ok {
		return nil, false
	}
	return s.byUser(userID.(string))
}

// copySubscription keeps callers from mutating stored records
func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	if sub.CurrentPeriodEnd != nil {
		end := *sub.CurrentPeriodEnd
		c.CurrentPeriodEnd = &end
	}
	return &c
}

func notFound(key, value string) error {
	return ierr.NewError("subscription not found").
		WithHint("Subscription not found").
		WithReportableDetails(map[string]any{key: value}).
		Mark(ierr.ErrNotFound)
}
