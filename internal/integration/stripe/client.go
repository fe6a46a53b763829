package stripe

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/billing"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// Client fetches subscription details from Stripe
type Client struct {
	stripeClient *stripe.Client
	logger       *logger.Logger
}

// NewClient creates a new Stripe client
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		stripeClient: stripe.NewClient(cfg.Stripe.SecretKey, nil),
		logger:       logger,
	}
}

// FetchSubscription retrieves a subscription with its prices expanded
func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	params := &stripe.SubscriptionRetrieveParams{
		Expand: []*string{
			stripe.String("items.data.price"),
		},
	}

	stripeSub, err := c.stripeClient.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err != nil {
		c.logger.Errorw("failed to retrieve subscription from Stripe",
			"error", err,
			"subscription_id", subscriptionID,
		)
		return nil, ierr.WithError(err).
			WithHint("Could not fetch subscription information from Stripe").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrUpstreamUnavailable)
	}

	return toProviderSubscription(stripeSub), nil
}

// toProviderSubscription keeps the first item's price and period end.
// Subscriptions sold by this service carry a single item.
func toProviderSubscription(sub *stripe.Subscription) *billing.ProviderSubscription {
	result := &billing.ProviderSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}

	if sub.Customer != nil {
		result.CustomerID = sub.Customer.ID
	}

	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return result
	}

	item := sub.Items.Data[0]
	if item.Price != nil {
		result.PriceID = item.Price.ID
	}
	if item.CurrentPeriodEnd > 0 {
		result.CurrentPeriodEnd = lo.ToPtr(time.Unix(item.CurrentPeriodEnd, 0).UTC())
	}

	return result
}
