package auth

import (
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/httpclient"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// Provider verifies bearer tokens and resolves emails against the identity provider
type Provider interface {
	identity.Verifier

	GetProvider() types.AuthProvider
}

// NewProvider builds the identity provider selected by auth.provider.
// Both variants share the admin user directory for email lookups.
func NewProvider(cfg *config.Configuration, log *logger.Logger) (Provider, error) {
	client := httpclient.NewDefaultClient(httpclient.ClientConfig{
		Timeout:  cfg.Auth.Directory.Timeout,
		RetryMax: cfg.Auth.Directory.RetryMax,
	}, log)
	directory := NewDirectory(cfg.Auth.Supabase, cfg.Auth.Directory, client, log)

	switch cfg.Auth.Provider {
	case types.AuthProviderSupabase:
		return NewSupabaseAuth(cfg.Auth.Supabase, directory, log)
	case types.AuthProviderJWT:
		return NewJWTAuth(cfg.Auth.Supabase, directory, log), nil
	default:
		return nil, ierr.NewError("unknown auth provider").
			WithHintf("Unsupported auth provider %q", cfg.Auth.Provider).
			Mark(ierr.ErrValidation)
	}
}
