package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestToProviderSubscription(t *testing.T) {
	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	got := toProviderSubscription(&stripe.Subscription{
		ID:       "sub_1",
		Status:   stripe.SubscriptionStatusActive,
		Customer: &stripe.Customer{ID: "cus_1"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_premium"}, CurrentPeriodEnd: end.Unix()},
				{Price: &stripe.Price{ID: "price_addon"}},
			},
		},
	})

	assert.Equal(t, "sub_1", got.ID)
	assert.Equal(t, "cus_1", got.CustomerID)
	assert.Equal(t, "price_premium", got.PriceID)
	assert.Equal(t, "active", got.Status)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))
	assert.False(t, got.IsEnded())
}

func TestToProviderSubscription_NoItems(t *testing.T) {
	got := toProviderSubscription(&stripe.Subscription{ID: "sub_2", Status: stripe.SubscriptionStatusCanceled})

	assert.Empty(t, got.PriceID)
	assert.Nil(t, got.CurrentPeriodEnd)
	assert.True(t, got.IsEnded())
}
