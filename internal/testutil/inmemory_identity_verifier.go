package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
)

// InMemoryIdentityVerifier is an identity provider backed by maps
type InMemoryIdentityVerifier struct {
	mu     sync.RWMutex
	tokens map[string]*identity.Identity
	users  []*identity.Identity

	// FindErr, when set, is returned by every FindByEmail call
	FindErr error
	// VerifyErr, when set, is returned by every VerifyToken call
	VerifyErr error
}

func NewInMemoryIdentityVerifier() *InMemoryIdentityVerifier {
	return &InMemoryIdentityVerifier{
		tokens: make(map[string]*identity.Identity),
	}
}

// AddUser registers a user and the token that verifies as that user
func (v *InMemoryIdentityVerifier) AddUser(token string, user *identity.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if token != "" {
		v.tokens[token] = user
	}
	v.users = append(v.users, user)
}

func (v *InMemoryIdentityVerifier) VerifyToken(_ context.Context, token string) (*identity.Identity, error) {
	if v.VerifyErr != nil {
		return nil, v.VerifyErr
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	user, ok := v.tokens[token]
	if !ok {
		return nil, ierr.NewError("unknown token").
			WithHint("Invalid token").
			Mark(ierr.ErrInvalidToken)
	}
	copied := *user
	return &copied, nil
}

func (v *InMemoryIdentityVerifier) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	if v.FindErr != nil {
		return nil, v.FindErr
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, user := range v.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ierr.NewError("user not found").
		WithHint("No user with this email").
		Mark(ierr.ErrNotFound)
}
