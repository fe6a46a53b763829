package repository

import (
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/subscription"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/postgres"
	memoryRepo "github.com/sanctuary/sanctuary-api/internal/repository/memory"
	postgresRepo "github.com/sanctuary/sanctuary-api/internal/repository/postgres"
	"github.com/sanctuary/sanctuary-api/internal/sentry"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// NewSubscriptionRepository returns the store selected by store.driver
func NewSubscriptionRepository(cfg *config.Configuration, db *postgres.DB, logger *logger.Logger, sentry *sentry.Service) (subscription.Repository, error) {
	switch cfg.Store.Driver {
	case types.StoreDriverPostgres:
		if db == nil {
			return nil, ierr.NewError("postgres store selected without a database").
				WithHint("Check the postgres configuration").
				Mark(ierr.ErrSystem)
		}
		return postgresRepo.NewSubscriptionRepository(db, logger, sentry), nil
	case types.StoreDriverMemory:
		logger.Warnw("using in-memory subscription store, records are lost on restart")
		return memoryRepo.NewSubscriptionRepository(logger), nil
	default:
		return nil, ierr.NewError("unknown store driver").
			WithHintf("Unsupported store driver %q", cfg.Store.Driver).
			Mark(ierr.ErrValidation)
	}
}
