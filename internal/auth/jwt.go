package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// accessTokenClaims are the claims of a Supabase access token we rely on
type accessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// jwtAuth verifies access tokens locally with the project's JWT secret
type jwtAuth struct {
	*Directory
	secret []byte
	logger *logger.Logger
}

func NewJWTAuth(cfg config.SupabaseConfig, directory *Directory, log *logger.Logger) Provider {
	return &jwtAuth{
		Directory: directory,
		secret:    []byte(cfg.JWTSecret),
		logger:    log,
	}
}

func (j *jwtAuth) GetProvider() types.AuthProvider {
	return types.AuthProviderJWT
}

func (j *jwtAuth) VerifyToken(_ context.Context, token string) (*identity.Identity, error) {
	claims := &accessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		j.logger.Debugw("token parse error", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	if !parsed.Valid {
		return nil, ierr.NewError("token is not valid").
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	// a token without expiry is never accepted
	if claims.ExpiresAt == nil {
		return nil, ierr.NewError("token has no expiry").
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	if claims.Subject == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}

	return &identity.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
	}, nil
}
