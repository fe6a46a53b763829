package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/postgres"
	"github.com/sanctuary/sanctuary-api/internal/sentry"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

const uniqueViolation = "23505"

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	sentry *sentry.Service
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger, sentry *sentry.Service) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger, sentry: sentry}
}

func (r *subscriptionRepository) GetActiveByUser(ctx context.Context, userID string) (*subscription.Subscription, error) {
	span, ctx := r.sentry.StartDBSpan(ctx, "subscription.get_active_by_user", map[string]interface{}{
		"user_id": userID,
	})
	if span != nil {
		defer span.Finish()
	}

	query := `SELECT * FROM subscriptions WHERE user_id = $1 AND status = $2`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, userID, types.SubscriptionStatusActive)
	if err != nil {
		return nil, r.wrap(err, "user_id", userID)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetBySubscriptionID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	span, ctx := r.sentry.StartDBSpan(ctx, "subscription.get_by_subscription_id", map[string]interface{}{
		"provider_subscription_id": providerSubscriptionID,
	})
	if span != nil {
		defer span.Finish()
	}

	query := `SELECT * FROM subscriptions WHERE provider_subscription_id = $1`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, providerSubscriptionID)
	if err != nil {
		return nil, r.wrap(err, "provider_subscription_id", providerSubscriptionID)
	}
	return &sub, nil
}

// UpsertByUser is a single statement, so concurrent upserts for the same user
// are serialized by the unique index and the last one wins.
func (r *subscriptionRepository) UpsertByUser(ctx context.Context, sub *subscription.Subscription) error {
	span, ctx := r.sentry.StartDBSpan(ctx, "subscription.upsert_by_user", map[string]interface{}{
		"user_id":                  sub.UserID,
		"provider_subscription_id": sub.ProviderSubscriptionID,
	})
	if span != nil {
		defer span.Finish()
	}

	query := `
		INSERT INTO subscriptions (
			id,
			user_id,
			plan,
			status,
			provider_customer_id,
			provider_subscription_id,
			current_period_end,
			created_at,
			updated_at
		) VALUES (
			:id,
			:user_id,
			:plan,
			:status,
			:provider_customer_id,
			:provider_subscription_id,
			:current_period_end,
			:created_at,
			:updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, sub); err != nil {
		return r.wrap(err, "user_id", sub.UserID)
	}
	return nil
}

func (r *subscriptionRepository) UpdateStatusBySubscriptionID(ctx context.Context, providerSubscriptionID string, status types.SubscriptionStatus) error {
	return r.UpdateBySubscriptionID(ctx, providerSubscriptionID, subscription.Update{Status: &status})
}

func (r *subscriptionRepository) UpdateBySubscriptionID(ctx context.Context, providerSubscriptionID string, update subscription.Update) error {
	span, ctx := r.sentry.StartDBSpan(ctx, "subscription.update_by_subscription_id", map[string]interface{}{
		"provider_subscription_id": providerSubscriptionID,
	})
	if span != nil {
		defer span.Finish()
	}

	// nil fields keep their stored value
	query := `
		UPDATE subscriptions SET
			plan = COALESCE($2, plan),
			status = COALESCE($3, status),
			current_period_end = COALESCE($4, current_period_end),
			updated_at = $5
		WHERE provider_subscription_id = $1
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		providerSubscriptionID,
		update.Plan,
		update.Status,
		update.CurrentPeriodEnd,
		time.Now().UTC(),
	)
	if err != nil {
		return r.wrap(err, "provider_subscription_id", providerSubscriptionID)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.wrap(err, "provider_subscription_id", providerSubscriptionID)
	}
	if affected == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("No subscription record for %s", providerSubscriptionID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) wrap(err error, key string, value string) error {
	details := map[string]any{key: value}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint("Subscription not found").
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ierr.WithError(err).
			WithHint("Subscription is already linked to another user").
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	}

	// reported once by the error handler at the request boundary
	return ierr.WithError(err).
		WithHint("Subscription store is unavailable").
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}
