package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sanctuary/sanctuary-api/internal/api"
	v1 "github.com/sanctuary/sanctuary-api/internal/api/v1"
	"github.com/sanctuary/sanctuary-api/internal/auth"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/integration/stripe"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/postgres"
	"github.com/sanctuary/sanctuary-api/internal/repository"
	"github.com/sanctuary/sanctuary-api/internal/sentry"
	"github.com/sanctuary/sanctuary-api/internal/service"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewDB,

			// Repositories
			repository.NewSubscriptionRepository,

			// Identity provider
			auth.NewProvider,
			provideIdentityVerifier,

			// Stripe
			fx.Annotate(stripe.NewClient, fx.As(new(billing.Provider))),
			fx.Annotate(stripe.NewWebhookVerifier, fx.As(new(billing.WebhookVerifier))),
		),
	)

	// Services
	opts = append(opts,
		fx.Provide(
			service.NewPlanMapper,
			service.NewServiceParams,
			service.NewSessionService,
			service.NewReconcileService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
	)

	// Monitoring
	opts = append(opts, sentry.Module())

	opts = append(opts,
		fx.Invoke(
			closeDBOnStop,
			startAPIServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideIdentityVerifier(provider auth.Provider) identity.Verifier {
	return provider
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	webhookVerifier billing.WebhookVerifier,
	reconcileService service.ReconcileService,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(cfg),
		Auth:    v1.NewAuthHandler(logger),
		Webhook: v1.NewWebhookHandler(cfg, webhookVerifier, reconcileService, logger),
	}
}

func closeDBOnStop(lc fx.Lifecycle, db *postgres.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddress(),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...",
				"service", cfg.Server.ServiceName,
				"address", srv.Addr,
				"webhook_path", cfg.Server.WebhookPath,
			)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
