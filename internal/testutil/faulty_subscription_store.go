package testutil

import (
	"context"

	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// FaultySubscriptionStore wraps a store and fails reads or writes on demand
type FaultySubscriptionStore struct {
	subscription.Repository

	// ReadErr, when set, is returned by every read
	ReadErr error
	// WriteErr, when set, is returned by every write
	WriteErr error
}

func NewFaultySubscriptionStore(repo subscription.Repository) *FaultySubscriptionStore {
	return &FaultySubscriptionStore{Repository: repo}
}

func (s *FaultySubscriptionStore) GetActiveByUser(ctx context.Context, userID string) (*subscription.Subscription, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.Repository.GetActiveByUser(ctx, userID)
}

func (s *FaultySubscriptionStore) GetBySubscriptionID(ctx context.Context, id string) (*subscription.Subscription, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.Repository.GetBySubscriptionID(ctx, id)
}

func (s *FaultySubscriptionStore) UpsertByUser(ctx context.Context, sub *subscription.Subscription) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	return s.Repository.UpsertByUser(ctx, sub)
}

func (s *FaultySubscriptionStore) UpdateStatusBySubscriptionID(ctx context.Context, id string, status types.SubscriptionStatus) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	return s.Repository.UpdateStatusBySubscriptionID(ctx, id, status)
}

func (s *FaultySubscriptionStore) UpdateBySubscriptionID(ctx context.Context, id string, update subscription.Update) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	return s.Repository.UpdateBySubscriptionID(ctx, id, update)
}
