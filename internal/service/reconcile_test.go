package service

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/testutil"
	"github.com/sanctuary/sanctuary-api/internal/types"
	"github.com/stretchr/testify/suite"
)

type ReconcileServiceSuite struct {
	testutil.BaseServiceTestSuite
	service   ReconcileService
	periodEnd time.Time
}

func TestReconcileService(t *testing.T) {
	suite.Run(t, new(ReconcileServiceSuite))
}

func (s *ReconcileServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	mapper, err := NewPlanMapper(s.GetConfig(), s.GetLogger())
	s.Require().NoError(err)

	s.GetIdentityVerifier().AddUser("", &identity.Identity{ID: "user-a", Email: "a@x.com"})

	s.periodEnd = time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
	s.GetBillingProvider().SetSubscription(&billing.ProviderSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_from_provider",
		PriceID:          "price_prem",
		Status:           "active",
		CurrentPeriodEnd: &s.periodEnd,
	})

	s.service = NewReconcileService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		SubRepo:          s.GetSubscriptionRepo(),
		IdentityVerifier: s.GetIdentityVerifier(),
		BillingProvider:  s.GetBillingProvider(),
		PlanMapper:       mapper,
	})
}

func (s *ReconcileServiceSuite) checkout(email, subID string) *billing.CheckoutCompleted {
	return &billing.CheckoutCompleted{
		Envelope: billing.Envelope{
			ID:      "evt_checkout",
			Type:    billing.EventKindCheckoutCompleted,
			Created: s.GetNow(),
		},
		CustomerEmail:          email,
		ProviderSubscriptionID: subID,
	}
}

func (s *ReconcileServiceSuite) deleted(subID string) *billing.SubscriptionDeleted {
	return &billing.SubscriptionDeleted{
		Envelope: billing.Envelope{
			ID:      "evt_deleted",
			Type:    billing.EventKindSubscriptionDeleted,
			Created: s.GetNow(),
		},
		ProviderSubscriptionID: subID,
	}
}

func (s *ReconcileServiceSuite) updated(subID string) *billing.SubscriptionUpdated {
	return &billing.SubscriptionUpdated{
		Envelope: billing.Envelope{
			ID:      "evt_updated",
			Type:    billing.EventKindSubscriptionUpdated,
			Created: s.GetNow(),
		},
		ProviderSubscriptionID: subID,
	}
}

func (s *ReconcileServiceSuite) stored(subID string) *subscription.Subscription {
	sub, err := s.GetSubscriptionRepo().GetBySubscriptionID(s.GetContext(), subID)
	s.Require().NoError(err)
	return sub
}

func (s *ReconcileServiceSuite) TestCheckoutCompleted() {
	outcome, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeApplied, outcome)

	sub := s.stored("sub_1")
	s.Equal("user-a", sub.UserID)
	s.Equal(types.PlanPremium, sub.Plan)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Equal("cus_from_provider", sub.ProviderCustomerID)
	s.Require().NotNil(sub.CurrentPeriodEnd)
	s.True(s.periodEnd.Equal(*sub.CurrentPeriodEnd))
}

func (s *ReconcileServiceSuite) TestCheckoutEmailIsCaseInsensitive() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("A@X.COM", "sub_1"))
	s.Require().NoError(err)
	s.Equal("user-a", s.stored("sub_1").UserID)
}

func (s *ReconcileServiceSuite) TestCheckoutIsIdempotent() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)
	first := s.stored("sub_1")

	_, err = s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)
	second := s.stored("sub_1")

	s.Equal(first.ID, second.ID)
	s.Equal(first.UserID, second.UserID)
	s.Equal(first.Plan, second.Plan)
	s.Equal(first.Status, second.Status)
	s.Equal(first.ProviderCustomerID, second.ProviderCustomerID)
	s.True(first.CurrentPeriodEnd.Equal(*second.CurrentPeriodEnd))

	active, err := s.GetSubscriptionRepo().GetActiveByUser(s.GetContext(), "user-a")
	s.Require().NoError(err)
	s.Equal(first.ID, active.ID)
}

func (s *ReconcileServiceSuite) TestCheckoutPrefersEventCustomerID() {
	event := s.checkout("a@x.com", "sub_1")
	event.ProviderCustomerID = "cus_from_event"

	_, err := s.service.Reconcile(s.GetContext(), event)
	s.Require().NoError(err)
	s.Equal("cus_from_event", s.stored("sub_1").ProviderCustomerID)
}

func (s *ReconcileServiceSuite) TestCheckoutUnmappedPriceIsFree() {
	s.GetBillingProvider().SetSubscription(&billing.ProviderSubscription{ID: "sub_2", PriceID: "price_unknown"})

	outcome, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_2"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeApplied, outcome)
	s.Equal(types.PlanFree, s.stored("sub_2").Plan)
}

func (s *ReconcileServiceSuite) TestCheckoutIncompleteDataIsSkipped() {
	for _, event := range []*billing.CheckoutCompleted{
		s.checkout("", "sub_1"),
		s.checkout("a@x.com", ""),
	} {
		outcome, err := s.service.Reconcile(s.GetContext(), event)
		s.Require().NoError(err)
		s.Equal(ReconcileOutcomeSkipped, outcome)
	}
	s.Equal(0, s.GetBillingProvider().Calls())

	_, err := s.GetSubscriptionRepo().GetActiveByUser(s.GetContext(), "user-a")
	s.True(ierr.IsNotFound(err))
}

func (s *ReconcileServiceSuite) TestCheckoutUnknownUserIsSkipped() {
	outcome, err := s.service.Reconcile(s.GetContext(), s.checkout("nobody@x.com", "sub_1"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeSkipped, outcome)
	s.Equal(0, s.GetBillingProvider().Calls())
}

func (s *ReconcileServiceSuite) TestCheckoutDirectoryFailure() {
	s.GetIdentityVerifier().FindErr = errors.New("identity provider down")

	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrUpstreamUnavailable))
}

func (s *ReconcileServiceSuite) TestCheckoutReplayedAfterDeletionStaysCanceled() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)
	_, err = s.service.Reconcile(s.GetContext(), s.deleted("sub_1"))
	s.Require().NoError(err)

	s.GetBillingProvider().SetSubscription(&billing.ProviderSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_from_provider",
		PriceID:          "price_prem",
		Status:           "canceled",
		CurrentPeriodEnd: &s.periodEnd,
	})

	outcome, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeApplied, outcome)

	sub := s.stored("sub_1")
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.Equal(types.PlanPremium, sub.Plan)

	_, err = s.GetSubscriptionRepo().GetActiveByUser(s.GetContext(), "user-a")
	s.True(ierr.IsNotFound(err))
}

func (s *ReconcileServiceSuite) TestCheckoutTruncatedDirectoryIsRedelivered() {
	s.GetIdentityVerifier().FindErr = ierr.NewError("user directory scan truncated").
		Mark(ierr.ErrUpstreamUnavailable)

	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().Error(err)
	s.False(ierr.IsNotFound(err))
	s.Equal(http.StatusInternalServerError, ierr.HTTPStatusFromErr(err))
	s.Equal(0, s.GetBillingProvider().Calls())
}

func (s *ReconcileServiceSuite) TestCheckoutProviderFailure() {
	s.GetBillingProvider().Err = errors.New("stripe timeout")

	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrUpstreamUnavailable))

	_, err = s.GetSubscriptionRepo().GetBySubscriptionID(s.GetContext(), "sub_1")
	s.True(ierr.IsNotFound(err))
}

func (s *ReconcileServiceSuite) TestCheckoutStoreFailure() {
	s.GetStores().SubscriptionRepo.WriteErr = ierr.NewError("connection reset").Mark(ierr.ErrDatabase)

	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrStoreUnavailable))
}

func (s *ReconcileServiceSuite) TestDeletedCancelsAndKeepsPlan() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)

	outcome, err := s.service.Reconcile(s.GetContext(), s.deleted("sub_1"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeApplied, outcome)

	sub := s.stored("sub_1")
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.Equal(types.PlanPremium, sub.Plan)

	// redelivery is harmless
	_, err = s.service.Reconcile(s.GetContext(), s.deleted("sub_1"))
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, s.stored("sub_1").Status)
}

func (s *ReconcileServiceSuite) TestDeletedUnknownSubscriptionIsNoop() {
	outcome, err := s.service.Reconcile(s.GetContext(), s.deleted("sub_unknown"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeSkipped, outcome)
}

func (s *ReconcileServiceSuite) TestDeletedWithoutIDIsSkipped() {
	outcome, err := s.service.Reconcile(s.GetContext(), s.deleted(""))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeSkipped, outcome)
}

func (s *ReconcileServiceSuite) TestDeletedStoreFailure() {
	s.GetStores().SubscriptionRepo.WriteErr = ierr.NewError("connection reset").Mark(ierr.ErrDatabase)

	_, err := s.service.Reconcile(s.GetContext(), s.deleted("sub_1"))
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrStoreUnavailable))
}

func (s *ReconcileServiceSuite) TestUpdatedChangesPlanAndPeriod() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)

	nextEnd := s.periodEnd.AddDate(0, 1, 0)
	s.GetBillingProvider().SetSubscription(&billing.ProviderSubscription{
		ID:               "sub_1",
		PriceID:          "price_std",
		Status:           "active",
		CurrentPeriodEnd: &nextEnd,
	})

	outcome, err := s.service.Reconcile(s.GetContext(), s.updated("sub_1"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeApplied, outcome)

	sub := s.stored("sub_1")
	s.Equal(types.PlanStandard, sub.Plan)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.True(nextEnd.Equal(*sub.CurrentPeriodEnd))
}

func (s *ReconcileServiceSuite) TestUpdatedToEndedStatusCancels() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)

	s.GetBillingProvider().SetSubscription(&billing.ProviderSubscription{
		ID:      "sub_1",
		PriceID: "price_prem",
		Status:  "incomplete_expired",
	})

	_, err = s.service.Reconcile(s.GetContext(), s.updated("sub_1"))
	s.Require().NoError(err)

	sub := s.stored("sub_1")
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.True(s.periodEnd.Equal(*sub.CurrentPeriodEnd))
}

func (s *ReconcileServiceSuite) TestUpdatedUnknownSubscriptionIsNoop() {
	outcome, err := s.service.Reconcile(s.GetContext(), s.updated("sub_unknown"))
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeSkipped, outcome)
	s.Equal(0, s.GetBillingProvider().Calls())
}

func (s *ReconcileServiceSuite) TestUpdatedProviderFailure() {
	_, err := s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
	s.Require().NoError(err)
	s.GetBillingProvider().Err = errors.New("stripe timeout")

	_, err = s.service.Reconcile(s.GetContext(), s.updated("sub_1"))
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrUpstreamUnavailable))
}

func (s *ReconcileServiceSuite) TestUnhandledKindIsIgnored() {
	event := &billing.Unhandled{Envelope: billing.Envelope{ID: "evt_x", Type: "invoice.paid", Created: s.GetNow()}}

	outcome, err := s.service.Reconcile(s.GetContext(), event)
	s.Require().NoError(err)
	s.Equal(ReconcileOutcomeIgnored, outcome)
}

func (s *ReconcileServiceSuite) TestConcurrentRedeliveryLeavesOneRecord() {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.service.Reconcile(s.GetContext(), s.checkout("a@x.com", "sub_1"))
		}()
	}
	wg.Wait()

	sub := s.stored("sub_1")
	s.Equal(types.PlanPremium, sub.Plan)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}
