package service

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

// PlanMapper translates payment provider price ids into plan tiers
type PlanMapper struct {
	prices map[string]types.PlanTier
}

// NewPlanMapper builds the mapper from the plans configuration.
// Prices without a mapping resolve to free, so a misconfigured mapping
// downgrades paid checkouts; an empty mapping is logged at startup.
func NewPlanMapper(cfg *config.Configuration, logger *logger.Logger) (*PlanMapper, error) {
	prices, err := cfg.Plans.Mapping()
	if err != nil {
		return nil, err
	}

	m := &PlanMapper{prices: prices}
	if len(prices) == 0 {
		logger.Warnw("no price to plan mapping configured, every checkout will resolve to the free plan")
	} else {
		logger.Infow("plan mapping loaded", "price_ids", m.KnownPriceIDs())
	}
	return m, nil
}

// NewPlanMapperFromMap builds a mapper from an explicit price id -> tier map
func NewPlanMapperFromMap(prices map[string]types.PlanTier) *PlanMapper {
	return &PlanMapper{prices: lo.Assign(prices)}
}

// ResolvePlan returns the tier for a price id, free when unknown or empty
func (m *PlanMapper) ResolvePlan(priceID string) types.PlanTier {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return types.PlanFree
	}
	if tier, ok := m.prices[priceID]; ok {
		return tier
	}
	return types.PlanFree
}

// KnownPriceIDs returns the configured price ids in sorted order
func (m *PlanMapper) KnownPriceIDs() []string {
	ids := lo.Keys(m.prices)
	sort.Strings(ids)
	return ids
}
