package pricing

import (
	"sort"

	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// ShippingTier prices orders of up to MaxItems items.
//
// A tier is flat by default. When ToItems > FromItems the cost is linear
// between (FromItems, Cost) and (ToItems, ToCost). When PerItem is set the
// cost is items × PerItem.
type ShippingTier struct {
	MaxItems  int             `json:"max_items"` // 0 means unbounded
	Cost      decimal.Decimal `json:"cost"`
	FromItems int             `json:"from_items,omitempty"`
	ToItems   int             `json:"to_items,omitempty"`
	ToCost    decimal.Decimal `json:"to_cost,omitempty"`
	PerItem   decimal.Decimal `json:"per_item,omitempty"`
}

func (t ShippingTier) price(items int) decimal.Decimal {
	n := decimal.NewFromInt(int64(items))
	switch {
	case t.PerItem.IsPositive():
		return n.Mul(t.PerItem)
	case t.ToItems > t.FromItems:
		ratio := n.Sub(decimal.NewFromInt(int64(t.FromItems))).
			Div(decimal.NewFromInt(int64(t.ToItems - t.FromItems)))
		return t.Cost.Add(ratio.Mul(t.ToCost.Sub(t.Cost)))
	default:
		return t.Cost
	}
}

// TieredShippingStrategy prices shipping from the order's item count
type TieredShippingStrategy struct {
	strategy.BaseStrategy
	tiers []ShippingTier
}

// NewTieredShippingStrategy sorts tiers by MaxItems, unbounded last
func NewTieredShippingStrategy(tiers []ShippingTier) *TieredShippingStrategy {
	sorted := make([]ShippingTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].MaxItems, sorted[j].MaxItems
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})

	return &TieredShippingStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"tiered",
			strategy.StrategyTypeShipping,
			"Shipping cost by item count tiers",
		),
		tiers: sorted,
	}
}

// DefaultShippingTiers is the carrier grid used for wholesale parcels
func DefaultShippingTiers() []ShippingTier {
	d := decimal.NewFromInt
	return []ShippingTier{
		{MaxItems: 2, Cost: d(13)},
		{MaxItems: 8, Cost: d(20)},
		{MaxItems: 14, Cost: d(25)},
		{MaxItems: 36, Cost: d(35)},
		{MaxItems: 45, Cost: d(45)},
		{MaxItems: 99, Cost: d(45), FromItems: 45, ToItems: 100, ToCost: d(100)},
		{MaxItems: 199, Cost: d(100), FromItems: 100, ToItems: 200, ToCost: d(172)},
		{MaxItems: 380, Cost: d(172), FromItems: 200, ToItems: 380, ToCost: d(300)},
		{PerItem: decimal.RequireFromString("0.79")},
	}
}

// DefaultTieredShippingStrategy uses DefaultShippingTiers
func DefaultTieredShippingStrategy() *TieredShippingStrategy {
	return NewTieredShippingStrategy(DefaultShippingTiers())
}

// GetTiers returns a copy of the tiers
func (s *TieredShippingStrategy) GetTiers() []ShippingTier {
	out := make([]ShippingTier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// ShippingCost returns the cost rounded to whole currency units. Empty orders ship free.
func (s *TieredShippingStrategy) ShippingCost(totalItems int) decimal.Decimal {
	if totalItems <= 0 {
		return decimal.Zero
	}
	for _, t := range s.tiers {
		if t.MaxItems == 0 || totalItems <= t.MaxItems {
			return t.price(totalItems).Round(0)
		}
	}
	return decimal.Zero
}
