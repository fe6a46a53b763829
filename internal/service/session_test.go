package service

import (
	"errors"
	"testing"

	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/testutil"
	"github.com/sanctuary/sanctuary-api/internal/types"
	"github.com/stretchr/testify/suite"
)

type SessionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SessionService
	alice   *identity.Identity
}

func TestSessionService(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}

func (s *SessionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.alice = &identity.Identity{ID: "user-alice", Email: "alice@example.com"}
	s.GetIdentityVerifier().AddUser("token-alice", s.alice)

	s.service = NewSessionService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		SubRepo:          s.GetSubscriptionRepo(),
		IdentityVerifier: s.GetIdentityVerifier(),
	})
}

func (s *SessionServiceSuite) TestMissingToken() {
	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   ", "bearer token-alice"} {
		_, err := s.service.ResolveSession(s.GetContext(), header)
		s.Require().Error(err, "header %q", header)
		s.True(ierr.Is(err, ierr.ErrMissingToken), "header %q", header)
	}
}

func (s *SessionServiceSuite) TestInvalidToken() {
	_, err := s.service.ResolveSession(s.GetContext(), "Bearer nope")
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidToken))
	s.False(ierr.Is(err, ierr.ErrMissingToken))
}

func (s *SessionServiceSuite) TestVerifierFailureIsInvalidToken() {
	s.GetIdentityVerifier().VerifyErr = errors.New("connection refused")

	_, err := s.service.ResolveSession(s.GetContext(), "Bearer token-alice")
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidToken))
}

func (s *SessionServiceSuite) TestFreeWithoutSubscription() {
	session, err := s.service.ResolveSession(s.GetContext(), "Bearer token-alice")
	s.Require().NoError(err)
	s.Equal(s.alice, session.User)
	s.Equal(types.PlanFree, session.Plan)
}

func (s *SessionServiceSuite) TestActivePlan() {
	sub := subscription.NewActive(s.alice.ID, types.PlanPremium, "cus_1", "sub_1", nil)
	s.Require().NoError(s.GetSubscriptionRepo().UpsertByUser(s.GetContext(), sub))

	session, err := s.service.ResolveSession(s.GetContext(), "Bearer token-alice")
	s.Require().NoError(err)
	s.Equal("user-alice", session.User.ID)
	s.Equal("alice@example.com", session.User.Email)
	s.Equal(types.PlanPremium, session.Plan)
}

func (s *SessionServiceSuite) TestCanceledSubscriptionIsFree() {
	sub := subscription.NewActive(s.alice.ID, types.PlanPremium, "cus_1", "sub_1", nil)
	s.Require().NoError(s.GetSubscriptionRepo().UpsertByUser(s.GetContext(), sub))
	s.Require().NoError(s.GetSubscriptionRepo().UpdateStatusBySubscriptionID(s.GetContext(), "sub_1", types.SubscriptionStatusCanceled))

	session, err := s.service.ResolveSession(s.GetContext(), "Bearer token-alice")
	s.Require().NoError(err)
	s.Equal(types.PlanFree, session.Plan)
}

func (s *SessionServiceSuite) TestStoreFailureDegradesToFree() {
	sub := subscription.NewActive(s.alice.ID, types.PlanPremium, "cus_1", "sub_1", nil)
	s.Require().NoError(s.GetSubscriptionRepo().UpsertByUser(s.GetContext(), sub))
	s.GetStores().SubscriptionRepo.ReadErr = ierr.NewError("connection reset").Mark(ierr.ErrDatabase)

	session, err := s.service.ResolveSession(s.GetContext(), "Bearer token-alice")
	s.Require().NoError(err)
	s.Equal(types.PlanFree, session.Plan)
}

func (s *SessionServiceSuite) TestTokenWhitespaceIsTrimmed() {
	session, err := s.service.ResolveSession(s.GetContext(), "Bearer  token-alice ")
	s.Require().NoError(err)
	s.Equal("user-alice", session.User.ID)
}
