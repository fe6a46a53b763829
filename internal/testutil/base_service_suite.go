package testutil

import (
	"context"
	"time"

	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/repository/memory"
	"github.com/sanctuary/sanctuary-api/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds the repository interfaces for testing
type Stores struct {
	SubscriptionRepo *FaultySubscriptionStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	verifier *InMemoryIdentityVerifier
	provider *InMemoryBillingProvider
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	cfg.Auth.Supabase = config.SupabaseConfig{URL: "http://identity.test", ServiceKey: "service-key"}
	cfg.Stripe.SecretKey = "sk_test_123"
	cfg.Stripe.WebhookSecret = "whsec_test_123"
	cfg.Plans.Prices = []config.PriceMapping{
		{PriceID: "price_std", Tier: types.PlanStandard},
		{PriceID: "price_prem", Tier: types.PlanPremium},
	}

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		SubscriptionRepo: NewFaultySubscriptionStore(memory.NewSubscriptionRepository(s.logger)),
	}
	s.verifier = NewInMemoryIdentityVerifier()
	s.provider = NewInMemoryBillingProvider()
	s.now = time.Now().UTC()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetSubscriptionRepo returns the subscription store as its interface
func (s *BaseServiceTestSuite) GetSubscriptionRepo() subscription.Repository {
	return s.stores.SubscriptionRepo
}

// GetIdentityVerifier returns the fake identity provider
func (s *BaseServiceTestSuite) GetIdentityVerifier() *InMemoryIdentityVerifier {
	return s.verifier
}

// GetBillingProvider returns the fake payment provider
func (s *BaseServiceTestSuite) GetBillingProvider() *InMemoryBillingProvider {
	return s.provider
}

// GetNow returns the time captured when the test started
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
