package strategy

import (
	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	"github.com/dbcb2b/backend/internal/infrastructure/strategy/pricing"
)

// NewRegistryWithDefaults creates a registry holding the margin pricing and
// tiered shipping strategies, both set as defaults.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	margin := pricing.NewMarginPricingStrategy()
	if err := r.RegisterPricingStrategy(margin); err != nil {
		return nil, err
	}

	shipping := pricing.DefaultTieredShippingStrategy()
	if err := r.RegisterShippingStrategy(shipping); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypePricing, margin.Name()); err != nil {
		return nil, err
	}
	if err := r.SetDefault(strategy.StrategyTypeShipping, shipping.Name()); err != nil {
		return nil, err
	}

	return r, nil
}
