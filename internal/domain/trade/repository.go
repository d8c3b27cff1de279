package trade

import (
	"context"

	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	OwnerID *uuid.UUID
	Status  OrderStatus
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID loads an order with its items; shared.ErrNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindDraftByOwner returns the owner's draft; shared.ErrNotFound when none
	FindDraftByOwner(ctx context.Context, ownerID uuid.UUID) (*Order, error)

	// FindAll lists orders (without items) with the total count
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// Save creates or updates the order and replaces its items. Updates are
	// guarded by the aggregate version and fail with
	// shared.ErrConcurrencyConflict on a stale copy.
	Save(ctx context.Context, order *Order) error

	// SaveWithStock applies the stock plan and saves the order in one
	// transaction. Nothing is written when a removal is not covered.
	SaveWithStock(ctx context.Context, order *Order, plan inventory.Plan) (*inventory.ApplyResult, error)

	// Delete removes the order's items, then the order
	Delete(ctx context.Context, id uuid.UUID) error
}

// SerializedUnitRepository defines the interface for serialized unit persistence
type SerializedUnitRepository interface {
	// CountByOrder counts the units attached to any line of the order
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)

	// FindByOrder lists the units of the order sorted by SKU then identifier
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]SerializedUnit, error)

	// AttachAndSave inserts the units and saves the order in one transaction
	AttachAndSave(ctx context.Context, order *Order, units []SerializedUnit) error

	// DetachAndSave deletes every unit of the order and saves it in one transaction
	DetachAndSave(ctx context.Context, order *Order) (int64, error)
}
