package catalog

import (
	"context"
)

// UpsertResult summarizes a batch write keyed on SKU
type UpsertResult struct {
	Written int
	// Conflicts are SKUs left unwritten because the row already existed or
	// another writer created it first.
	Conflicts []string
	// UsedFallback is true when the batch statement failed and rows were
	// written one at a time.
	UsedFallback bool
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	NeighborFinder

	// FindBySKU returns shared.ErrNotFound when the SKU is unknown
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindBySKUs returns the known products among skus, in any order
	FindBySKUs(ctx context.Context, skus []string) ([]Product, error)

	// FindAll lists products matching the filter with the total count
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)

	// Save creates or updates a single product
	Save(ctx context.Context, product *Product) error

	// UpsertBatch writes products keyed on SKU, replacing name, attributes,
	// prices, quantity and active flag of existing rows
	UpsertBatch(ctx context.Context, products []*Product) (*UpsertResult, error)

	// CreateMissing inserts products whose SKU does not exist yet and leaves
	// existing rows untouched
	CreateMissing(ctx context.Context, products []*Product) (*UpsertResult, error)

	// DeactivateExcept zeroes quantity and clears the active flag of every
	// product whose SKU is not in keep. It returns the number of rows changed.
	DeactivateExcept(ctx context.Context, keep []string) (int64, error)
}
