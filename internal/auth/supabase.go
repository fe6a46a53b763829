package auth

import (
	"context"

	"github.com/nedpals/supabase-go"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// supabaseAuth asks the identity provider to validate every token
type supabaseAuth struct {
	*Directory
	client *supabase.Client
	logger *logger.Logger
}

func NewSupabaseAuth(cfg config.SupabaseConfig, directory *Directory, log *logger.Logger) (Provider, error) {
	client := supabase.CreateClient(cfg.URL, cfg.ServiceKey)
	if client == nil {
		return nil, ierr.NewError("failed to create supabase client").
			WithHint("Check auth.supabase.url and auth.supabase.service_key").
			Mark(ierr.ErrSystem)
	}

	return &supabaseAuth{
		Directory: directory,
		client:    client,
		logger:    log,
	}, nil
}

func (s *supabaseAuth) GetProvider() types.AuthProvider {
	return types.AuthProviderSupabase
}

func (s *supabaseAuth) VerifyToken(ctx context.Context, token string) (*identity.Identity, error) {
	user, err := s.client.Auth.User(ctx, token)
	if err != nil {
		s.logger.Debugw("identity provider rejected token", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	if user == nil || user.ID == "" {
		return nil, ierr.NewError("identity provider returned no user").
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	return &identity.Identity{
		ID:    user.ID,
		Email: user.Email,
	}, nil
}
