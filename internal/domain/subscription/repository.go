package subscription

import (
	"context"

	"github.com/sanctuary/sanctuary-api/internal/types"
)

// Repository is the subscription store. Every method is atomic per call and
// concurrent writes to the same key resolve to last write wins.
type Repository interface {
	// GetActiveByUser returns the user's record with status active.
	// Returns an ierr.ErrNotFound marked error when there is none.
	GetActiveByUser(ctx context.Context, userID string) (*Subscription, error)

	// GetBySubscriptionID returns the record correlated with a provider subscription.
	GetBySubscriptionID(ctx context.Context, providerSubscriptionID string) (*Subscription, error)

	// UpsertByUser inserts the record or replaces the user's existing one.
	// Applying the same record twice leaves a single identical row.
	UpsertByUser(ctx context.Context, sub *Subscription) error

	// UpdateStatusBySubscriptionID flips the status of the matching record.
	// Returns an ierr.ErrNotFound marked error when nothing matches.
	UpdateStatusBySubscriptionID(ctx context.Context, providerSubscriptionID string, status types.SubscriptionStatus) error

	// UpdateBySubscriptionID applies a partial update to the matching record.
	// Returns an ierr.ErrNotFound marked error when nothing matches.
	UpdateBySubscriptionID(ctx context.Context, providerSubscriptionID string, update Update) error
}
