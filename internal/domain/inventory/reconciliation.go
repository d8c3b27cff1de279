package inventory

import (
	"sort"

	"github.com/dbcb2b/backend/internal/domain/shared"
)

// Snapshot maps a SKU to an ordered quantity. A missing key means zero.
type Snapshot map[string]int

// Add accumulates qty for sku, summing repeated lines
func (s Snapshot) Add(sku string, qty int) {
	if qty == 0 {
		return
	}
	s[sku] += qty
}

// SKUs returns the snapshot keys in lexical order
func (s Snapshot) SKUs() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MovementKind is the direction of a stock movement
type MovementKind string

const (
	// MovementAddBack returns units to stock
	MovementAddBack MovementKind = "add_back"
	// MovementRemove takes units out of stock
	MovementRemove MovementKind = "remove"
)

// Movement is one scheduled stock change for a SKU
type Movement struct {
	SKU        string       `json:"sku"`
	Kind       MovementKind `json:"kind"`
	Quantity   int          `json:"quantity"`
	Deactivate bool         `json:"deactivate"`
}

// Signed returns the quantity change applied to on-hand stock
func (m Movement) Signed() int {
	if m.Kind == MovementRemove {
		return -m.Quantity
	}
	return m.Quantity
}

// Plan is the ordered set of movements that moves stock from one item
// snapshot to another.
type Plan struct {
	Movements []Movement `json:"movements"`
}

// Diff computes the stock plan required to go from original to edited.
//
// SKUs fully removed by the edit get their whole original quantity added back
// and are flagged for deactivation. Shrunk lines add back the difference,
// grown or new lines schedule a removal of the increase. Equal lines are
// skipped. Movements are sorted by SKU.
func Diff(original, edited Snapshot) Plan {
	seen := make(map[string]struct{}, len(original)+len(edited))
	skus := make([]string, 0, len(original)+len(edited))
	for _, s := range []Snapshot{original, edited} {
		for sku := range s {
			if _, ok := seen[sku]; !ok {
				seen[sku] = struct{}{}
				skus = append(skus, sku)
			}
		}
	}
	sort.Strings(skus)

	var plan Plan
	for _, sku := range skus {
		before, after := original[sku], edited[sku]
		switch {
		case after == before:
			continue
		case after == 0 && before > 0:
			plan.Movements = append(plan.Movements, Movement{SKU: sku, Kind: MovementAddBack, Quantity: before, Deactivate: true})
		case after < before:
			plan.Movements = append(plan.Movements, Movement{SKU: sku, Kind: MovementAddBack, Quantity: before - after})
		default:
			plan.Movements = append(plan.Movements, Movement{SKU: sku, Kind: MovementRemove, Quantity: after - before})
		}
	}
	return plan
}

// RestorePlan adds back every quantity of the snapshot without deactivating.
// It is used when a cancelled order gives its stock back.
func RestorePlan(s Snapshot) Plan {
	var plan Plan
	for _, sku := range s.SKUs() {
		if q := s[sku]; q > 0 {
			plan.Movements = append(plan.Movements, Movement{SKU: sku, Kind: MovementAddBack, Quantity: q})
		}
	}
	return plan
}

// IsEmpty reports whether the plan has no movement
func (p Plan) IsEmpty() bool {
	return len(p.Movements) == 0
}

// Removals returns the movements that take stock out
func (p Plan) Removals() []Movement {
	return p.filter(MovementRemove)
}

// AddBacks returns the movements that return stock
func (p Plan) AddBacks() []Movement {
	return p.filter(MovementAddBack)
}

func (p Plan) filter(kind MovementKind) []Movement {
	var out []Movement
	for _, m := range p.Movements {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// SKUs returns every SKU touched by the plan
func (p Plan) SKUs() []string {
	skus := make([]string, len(p.Movements))
	for i, m := range p.Movements {
		skus[i] = m.SKU
	}
	return skus
}

// CheckSufficiency verifies every removal against on-hand levels. A SKU
// missing from levels counts as zero stock. All shortfalls are reported
// together.
func (p Plan) CheckSufficiency(levels map[string]int) error {
	var offenders []shared.Offender
	for _, m := range p.Removals() {
		if available := levels[m.SKU]; available < m.Quantity {
			offenders = append(offenders, shared.Offender{Key: m.SKU, Expected: m.Quantity, Found: available})
		}
	}
	if len(offenders) > 0 {
		return NewInsufficientStockError(offenders)
	}
	return nil
}

// ApplyTo returns the levels obtained by applying the plan, flooring at zero.
// The input map is not modified.
func (p Plan) ApplyTo(levels map[string]int) map[string]int {
	out := make(map[string]int, len(levels))
	for k, v := range levels {
		out[k] = v
	}
	for _, m := range p.Movements {
		next := out[m.SKU] + m.Signed()
		if next < 0 {
			next = 0
		}
		out[m.SKU] = next
	}
	return out
}

// NewInsufficientStockError builds the guard violation listing every short SKU
// as requested (expected) versus available (found).
func NewInsufficientStockError(offenders []shared.Offender) *shared.GuardViolation {
	return shared.NewGuardViolation(shared.ErrInsufficientStock.Code, "Insufficient stock", offenders)
}
