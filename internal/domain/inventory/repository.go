package inventory

import "context"

// StockMutation records one applied change to a product's on-hand quantity
type StockMutation struct {
	SKU         string       `json:"sku"`
	Kind        MovementKind `json:"kind"`
	OldQuantity int          `json:"old_quantity"`
	NewQuantity int          `json:"new_quantity"`
	Delta       int          `json:"delta"`
	Deactivated bool         `json:"deactivated"`
}

// ApplyResult reports the outcome of applying a plan. Skipped lists add-backs
// whose SKU no longer exists in the catalog; they do not fail the run.
type ApplyResult struct {
	Mutations []StockMutation `json:"mutations"`
	Skipped   []string        `json:"skipped,omitempty"`
}

// Removed returns the total number of units taken out of stock
func (r *ApplyResult) Removed() int {
	total := 0
	for _, m := range r.Mutations {
		if m.Delta < 0 {
			total -= m.Delta
		}
	}
	return total
}

// StockReader reads on-hand quantities for the given SKUs. SKUs unknown to the
// catalog are absent from the result.
type StockReader interface {
	Levels(ctx context.Context, skus []string) (map[string]int, error)
}

// StockWriter applies a plan atomically: either every movement is applied or
// none is. A removal that would take a SKU below zero aborts the whole run
// with an insufficient-stock guard violation.
type StockWriter interface {
	Apply(ctx context.Context, plan Plan) (*ApplyResult, error)
}
