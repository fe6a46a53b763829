package testutil

import (
	"context"
	"sync"

	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
)

// InMemoryBillingProvider is a payment provider backed by a map
type InMemoryBillingProvider struct {
	mu            sync.RWMutex
	subscriptions map[string]*billing.ProviderSubscription
	calls         int

	// Err, when set, is returned by every FetchSubscription call
	Err error
}

func NewInMemoryBillingProvider() *InMemoryBillingProvider {
	return &InMemoryBillingProvider{
		subscriptions: make(map[string]*billing.ProviderSubscription),
	}
}

// SetSubscription registers or replaces a provider subscription
func (p *InMemoryBillingProvider) SetSubscription(sub *billing.ProviderSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions[sub.ID] = sub
}

// Calls returns the number of FetchSubscription calls
func (p *InMemoryBillingProvider) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

func (p *InMemoryBillingProvider) FetchSubscription(_ context.Context, id string) (*billing.ProviderSubscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.Err != nil {
		return nil, p.Err
	}

	sub, ok := p.subscriptions[id]
	if !ok {
		return nil, ierr.NewError("no such subscription").
			WithHintf("Subscription %s does not exist", id).
			Mark(ierr.ErrUpstreamUnavailable)
	}
	copied := *sub
	return &copied, nil
}
