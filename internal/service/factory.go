package service

import (
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Sentry *sentry.Service

	// Repositories
	SubRepo subscription.Repository

	// External collaborators
	IdentityVerifier identity.Verifier
	BillingProvider  billing.Provider
	PlanMapper       *PlanMapper
}

// NewServiceParams creates a new ServiceParams instance
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	sentry *sentry.Service,
	subRepo subscription.Repository,
	identityVerifier identity.Verifier,
	billingProvider billing.Provider,
	planMapper *PlanMapper,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		Sentry:           sentry,
		SubRepo:          subRepo,
		IdentityVerifier: identityVerifier,
		BillingProvider:  billingProvider,
		PlanMapper:       planMapper,
	}
}
