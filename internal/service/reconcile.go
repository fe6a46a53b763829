package service

import (
	"context"

	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/sentry"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// ReconcileOutcome tells what a reconciled event did to the store
type ReconcileOutcome string

const (
	// ReconcileOutcomeApplied means the store was written
	ReconcileOutcomeApplied ReconcileOutcome = "applied"
	// ReconcileOutcomeSkipped means the event was acknowledged without a write
	ReconcileOutcomeSkipped ReconcileOutcome = "skipped"
	// ReconcileOutcomeIgnored means the event kind has no transition
	ReconcileOutcomeIgnored ReconcileOutcome = "ignored"
)

// ReconcileService applies verified billing events to the subscription store.
// A returned error means the event must be redelivered; everything else is
// acknowledged.
type ReconcileService interface {
	Reconcile(ctx context.Context, event billing.Event) (ReconcileOutcome, error)
}

type reconcileService struct {
	verifier   identity.Verifier
	provider   billing.Provider
	subRepo    subscription.Repository
	planMapper *PlanMapper
	sentry     *sentry.Service
	logger     *logger.Logger
}

func NewReconcileService(params ServiceParams) ReconcileService {
	return &reconcileService{
		verifier:   params.IdentityVerifier,
		provider:   params.BillingProvider,
		subRepo:    params.SubRepo,
		planMapper: params.PlanMapper,
		sentry:     params.Sentry,
		logger:     params.Logger,
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, event billing.Event) (ReconcileOutcome, error) {
	span, ctx := s.sentry.StartWebhookSpan(ctx, string(event.Kind()), event.CreatedAt())
	if span != nil {
		defer span.Finish()
	}

	log := s.logger.With("event_id", event.EventID(), "event_kind", event.Kind())
	s.sentry.AddBreadcrumb("webhook", "reconciling billing event", map[string]interface{}{
		"event_id":   event.EventID(),
		"event_kind": string(event.Kind()),
	})

	var (
		outcome ReconcileOutcome
		err     error
	)
	switch e := event.(type) {
	case *billing.CheckoutCompleted:
		outcome, err = s.handleCheckoutCompleted(ctx, e, log)
	case *billing.SubscriptionUpdated:
		outcome, err = s.handleSubscriptionUpdated(ctx, e, log)
	case *billing.SubscriptionDeleted:
		outcome, err = s.handleSubscriptionDeleted(ctx, e, log)
	default:
		log.Infow("unhandled billing event kind")
		return ReconcileOutcomeIgnored, nil
	}

	// incomplete events are acknowledged, the provider cannot fix them by retrying
	if ierr.IsDataIncomplete(err) {
		log.Warnw("billing event data incomplete, skipping", "error", err)
		return ReconcileOutcomeSkipped, nil
	}
	if err != nil {
		log.Errorw("failed to reconcile billing event", "error", err)
		return outcome, err
	}

	log.Infow("billing event reconciled", "outcome", outcome)
	return outcome, nil
}

func (s *reconcileService) handleCheckoutCompleted(ctx context.Context, e *billing.CheckoutCompleted, log *logger.Logger) (ReconcileOutcome, error) {
	if e.CustomerEmail == "" || e.ProviderSubscriptionID == "" {
		return ReconcileOutcomeSkipped, ierr.NewError("checkout session without email or subscription").
			WithReportableDetails(map[string]any{
				"has_email":        e.CustomerEmail != "",
				"has_subscription": e.ProviderSubscriptionID != "",
			}).
			Mark(ierr.ErrDataIncomplete)
	}

	user, err := s.verifier.FindByEmail(ctx, e.CustomerEmail)
	if err != nil {
		if ierr.IsNotFound(err) {
			// the payment may arrive before the account exists
			log.Warnw("no user for checkout email, skipping",
				"provider_subscription_id", e.ProviderSubscriptionID,
			)
			return ReconcileOutcomeSkipped, nil
		}
		return "", ierr.WithError(err).
			WithHint("Identity provider lookup failed").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	providerSub, err := s.provider.FetchSubscription(ctx, e.ProviderSubscriptionID)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Payment provider fetch failed").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	customerID := e.ProviderCustomerID
	if customerID == "" {
		customerID = providerSub.CustomerID
	}

	plan := s.planMapper.ResolvePlan(providerSub.PriceID)
	if plan == types.PlanFree && providerSub.PriceID != "" {
		log.Warnw("price id has no plan mapping, recording free plan",
			"price_id", providerSub.PriceID,
			"provider_subscription_id", e.ProviderSubscriptionID,
		)
	}

	record := subscription.NewActive(user.ID, plan, customerID, e.ProviderSubscriptionID, providerSub.CurrentPeriodEnd)
	// a checkout replayed after the deletion must not reactivate the record
	if providerSub.IsEnded() {
		record.Status = types.SubscriptionStatusCanceled
	}
	if err := s.subRepo.UpsertByUser(ctx, record); err != nil {
		return "", storeUnavailable(err)
	}

	log.Infow("subscription reconciled from checkout",
		"user_id", user.ID,
		"plan", plan,
		"status", record.Status,
		"provider_subscription_id", e.ProviderSubscriptionID,
	)
	return ReconcileOutcomeApplied, nil
}

func (s *reconcileService) handleSubscriptionUpdated(ctx context.Context, e *billing.SubscriptionUpdated, log *logger.Logger) (ReconcileOutcome, error) {
	if e.ProviderSubscriptionID == "" {
		return ReconcileOutcomeSkipped, ierr.NewError("subscription event without id").
			Mark(ierr.ErrDataIncomplete)
	}

	// nothing to update before the checkout has been reconciled
	if _, err := s.subRepo.GetBySubscriptionID(ctx, e.ProviderSubscriptionID); err != nil {
		if ierr.IsNotFound(err) {
			log.Infow("update for unknown subscription, skipping",
				"provider_subscription_id", e.ProviderSubscriptionID,
			)
			return ReconcileOutcomeSkipped, nil
		}
		return "", storeUnavailable(err)
	}

	providerSub, err := s.provider.FetchSubscription(ctx, e.ProviderSubscriptionID)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Payment provider fetch failed").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	plan := s.planMapper.ResolvePlan(providerSub.PriceID)
	update := subscription.Update{
		Plan:             &plan,
		CurrentPeriodEnd: providerSub.CurrentPeriodEnd,
	}
	if providerSub.IsEnded() {
		canceled := types.SubscriptionStatusCanceled
		update.Status = &canceled
	}

	if err := s.subRepo.UpdateBySubscriptionID(ctx, e.ProviderSubscriptionID, update); err != nil {
		if ierr.IsNotFound(err) {
			return ReconcileOutcomeSkipped, nil
		}
		return "", storeUnavailable(err)
	}
	return ReconcileOutcomeApplied, nil
}

func (s *reconcileService) handleSubscriptionDeleted(ctx context.Context, e *billing.SubscriptionDeleted, log *logger.Logger) (ReconcileOutcome, error) {
	if e.ProviderSubscriptionID == "" {
		return ReconcileOutcomeSkipped, ierr.NewError("subscription event without id").
			Mark(ierr.ErrDataIncomplete)
	}

	err := s.subRepo.UpdateStatusBySubscriptionID(ctx, e.ProviderSubscriptionID, types.SubscriptionStatusCanceled)
	if err != nil {
		if ierr.IsNotFound(err) {
			// already reconciled or never created, both are fine under redelivery
			log.Infow("deletion of unknown subscription, skipping",
				"provider_subscription_id", e.ProviderSubscriptionID,
			)
			return ReconcileOutcomeSkipped, nil
		}
		return "", storeUnavailable(err)
	}

	log.Infow("subscription canceled", "provider_subscription_id", e.ProviderSubscriptionID)
	return ReconcileOutcomeApplied, nil
}

func storeUnavailable(err error) error {
	return ierr.WithError(err).
		WithHint("Subscription store write failed").
		Mark(ierr.ErrStoreUnavailable)
}
