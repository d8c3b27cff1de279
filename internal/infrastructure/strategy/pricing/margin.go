package pricing

import (
	"context"

	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// Default resale multipliers
var (
	MarginalMultiplier    = decimal.RequireFromString("1.01")
	NonMarginalMultiplier = decimal.RequireFromString("1.11")
)

// MarginPricingStrategy applies a fixed multiplier per VAT regime
type MarginPricingStrategy struct {
	strategy.BaseStrategy
	marginal    decimal.Decimal
	nonMarginal decimal.Decimal
}

// NewMarginPricingStrategy creates the pricing strategy with the default multipliers
func NewMarginPricingStrategy() *MarginPricingStrategy {
	return NewMarginPricingStrategyWithMultipliers(MarginalMultiplier, NonMarginalMultiplier)
}

// NewMarginPricingStrategyWithMultipliers creates a margin strategy with custom multipliers
func NewMarginPricingStrategyWithMultipliers(marginal, nonMarginal decimal.Decimal) *MarginPricingStrategy {
	return &MarginPricingStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"margin",
			strategy.StrategyTypePricing,
			"Supplier price times a VAT-regime multiplier, rounded to cents",
		),
		marginal:    marginal,
		nonMarginal: nonMarginal,
	}
}

// CalculatePrice computes the resale price. Non-positive supplier prices yield zero.
func (s *MarginPricingStrategy) CalculatePrice(
	ctx context.Context,
	pricingCtx strategy.PricingContext,
) (strategy.PricingResult, error) {
	multiplier := s.nonMarginal
	rule := "non_marginal"
	if pricingCtx.Marginal {
		multiplier = s.marginal
		rule = "marginal"
	}

	if !pricingCtx.SupplierPrice.IsPositive() {
		return strategy.PricingResult{
			ResalePrice:  decimal.Zero,
			Multiplier:   multiplier,
			AppliedRules: []string{"zero_price"},
		}, nil
	}

	return strategy.PricingResult{
		ResalePrice:  pricingCtx.SupplierPrice.Mul(multiplier).Round(2),
		Multiplier:   multiplier,
		AppliedRules: []string{rule},
	}, nil
}

// ResalePrice is the context-free form used by importers
func (s *MarginPricingStrategy) ResalePrice(supplierPrice decimal.Decimal, marginal bool) decimal.Decimal {
	res, _ := s.CalculatePrice(context.Background(), strategy.PricingContext{SupplierPrice: supplierPrice, Marginal: marginal})
	return res.ResalePrice
}

// DBCPrice prices with the default multipliers.
// decimal.Round rounds half away from zero.
func DBCPrice(supplierPrice decimal.Decimal, marginal bool) decimal.Decimal {
	return defaultMargin.ResalePrice(supplierPrice, marginal)
}

var defaultMargin = NewMarginPricingStrategy()
