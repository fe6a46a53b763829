package service

import (
	"context"
	"strings"

	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

const bearerPrefix = "Bearer "

// Session is the verified caller with the plan it is entitled to
type Session struct {
	User *identity.Identity `json:"user"`
	Plan types.PlanTier     `json:"plan"`
}

// SessionService resolves the caller of a request
type SessionService interface {
	// ResolveSession verifies the Authorization header value and looks up the
	// caller's active plan. It never writes.
	ResolveSession(ctx context.Context, authorizationHeader string) (*Session, error)
}

type sessionService struct {
	verifier identity.Verifier
	subRepo  subscription.Repository
	logger   *logger.Logger
}

func NewSessionService(params ServiceParams) SessionService {
	return &sessionService{
		verifier: params.IdentityVerifier,
		subRepo:  params.SubRepo,
		logger:   params.Logger,
	}
}

func (s *sessionService) ResolveSession(ctx context.Context, authorizationHeader string) (*Session, error) {
	token, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, ierr.NewError("missing bearer token").
			WithHint("Missing token").
			Mark(ierr.ErrMissingToken)
	}

	user, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		// every verifier failure looks the same to the caller
		return nil, ierr.WithError(err).
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}
	if user == nil {
		return nil, ierr.NewError("verifier returned no identity").
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	return &Session{
		User: user,
		Plan: s.activePlan(ctx, user.ID),
	}, nil
}

// activePlan degrades to free when the store has no active record or cannot
// be read
func (s *sessionService) activePlan(ctx context.Context, userID string) types.PlanTier {
	sub, err := s.subRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			s.logger.Errorw("subscription read error, falling back to free plan",
				"user_id", userID,
				"error", err,
			)
		}
		return types.PlanFree
	}

	if err := sub.Plan.Validate(); err != nil {
		s.logger.Warnw("stored subscription has an unknown plan, falling back to free plan",
			"user_id", userID,
			"plan", sub.Plan,
		)
		return types.PlanFree
	}
	return sub.Plan
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return token, token != ""
}
