package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

// PricingContext provides context for resale price calculation
type PricingContext struct {
	SKU           string
	SupplierPrice decimal.Decimal
	// Marginal is true for goods taxed under the margin VAT regime
	Marginal bool
}

// PricingResult contains the result of pricing calculation
type PricingResult struct {
	ResalePrice  decimal.Decimal
	Multiplier   decimal.Decimal
	AppliedRules []string
}

// PricingStrategy turns a supplier price into a resale price
type PricingStrategy interface {
	Strategy
	CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error)
}

// ShippingStrategy prices the delivery of an order from its item count
type ShippingStrategy interface {
	Strategy
	ShippingCost(totalItems int) decimal.Decimal
}
