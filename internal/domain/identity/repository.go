package identity

import "context"

// Verifier resolves bearer tokens and emails to identities owned by the
// external identity provider.
type Verifier interface {
	// VerifyToken returns the identity the token was issued to.
	// Returns an ierr.ErrInvalidToken marked error when the token is not accepted.
	VerifyToken(ctx context.Context, token string) (*Identity, error)

	// FindByEmail looks up an identity in the provider's user directory.
	// Returns an ierr.ErrNotFound marked error when no user has this email.
	FindByEmail(ctx context.Context, email string) (*Identity, error)
}
