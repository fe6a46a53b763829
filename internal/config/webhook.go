package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// StripeConfig holds the payment provider credentials
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key" validate:"required"`
	WebhookSecret string `mapstructure:"webhook_secret" validate:"required"`
	// Tolerance is the maximum accepted age of a signed webhook timestamp
	Tolerance time.Duration `mapstructure:"tolerance" validate:"gte=0"`
}

// PlansConfig maps Stripe price ids to plan tiers.
//
// Price ids are case sensitive, so they are configured as a list (or as a
// comma separated price_map string) rather than as yaml map keys, which
// viper would lowercase.
type PlansConfig struct {
	Prices          []PriceMapping `mapstructure:"prices"`
	PriceMap        string         `mapstructure:"price_map"`
	StandardPriceID string         `mapstructure:"standard_price_id"`
	PremiumPriceID  string         `mapstructure:"premium_price_id"`
}

type PriceMapping struct {
	PriceID string         `mapstructure:"price_id"`
	Tier    types.PlanTier `mapstructure:"tier"`
}

// Mapping merges every configured source into a single price id -> tier map.
// Later sources override earlier ones: prices list, price_map, then the two
// single price id settings.
func (p PlansConfig) Mapping() (map[string]types.PlanTier, error) {
	mapping := make(map[string]types.PlanTier)

	for _, m := range p.Prices {
		if err := addPrice(mapping, m.PriceID, m.Tier); err != nil {
			return nil, err
		}
	}

	for _, entry := range lo.Compact(strings.Split(p.PriceMap, ",")) {
		priceID, tier, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			return nil, fmt.Errorf("plans.price_map entry %q must look like price_id=tier", entry)
		}
		if err := addPrice(mapping, priceID, types.PlanTier(strings.TrimSpace(tier))); err != nil {
			return nil, err
		}
	}

	if p.StandardPriceID != "" {
		mapping[strings.TrimSpace(p.StandardPriceID)] = types.PlanStandard
	}
	if p.PremiumPriceID != "" {
		mapping[strings.TrimSpace(p.PremiumPriceID)] = types.PlanPremium
	}

	return mapping, nil
}

func addPrice(mapping map[string]types.PlanTier, priceID string, tier types.PlanTier) error {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return fmt.Errorf("plans: empty price id for tier %q", tier)
	}
	if err := tier.Validate(); err != nil {
		return fmt.Errorf("plans: price %s: %w", priceID, err)
	}
	mapping[priceID] = tier
	return nil
}
