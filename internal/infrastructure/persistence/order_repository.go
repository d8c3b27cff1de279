package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/trade"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("sku ASC")
}

// FindByID finds an order by its ID with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDraftByOwner finds the owner's draft order
func (r *GormOrderRepository) FindDraftByOwner(ctx context.Context, ownerID uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("user_id = ? AND status = ?", ownerID, trade.OrderStatusDraft).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists orders without their items
func (r *GormOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]trade.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.OwnerID != nil {
		query = query.Where("user_id = ?", *filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := applyPaging(query, filter.Filter, OrderSortFields, "created_at", "DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]trade.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Save creates or updates the order with optimistic locking
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveOrder(tx, order)
	})
}

// SaveWithStock applies plan and saves the order in one transaction
func (r *GormOrderRepository) SaveWithStock(ctx context.Context, order *trade.Order, plan inventory.Plan) (*inventory.ApplyResult, error) {
	var result *inventory.ApplyResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if result, err = applyPlan(tx, plan); err != nil {
			return err
		}
		return saveOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the order's items, then the order
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// saveOrder inserts a new order or updates a stored one guarded by its
// version, then syncs the item rows. On update order.Version is bumped.
func saveOrder(tx *gorm.DB, order *trade.Order) error {
	var stored []int
	if err := tx.Model(&models.OrderModel{}).Where("id = ?", order.ID).Pluck("version", &stored).Error; err != nil {
		return err
	}

	model := models.OrderModelFromDomain(order)
	if len(stored) == 0 {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
	} else {
		if stored[0] != order.Version {
			return shared.ErrConcurrencyConflict
		}
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"name":          model.Name,
				"status":        model.Status,
				"status_label":  model.StatusLabel,
				"total_amount":  model.TotalAmount,
				"total_items":   model.TotalItems,
				"shipping_cost": model.ShippingCost,
				"free_shipping": model.FreeShipping,
				"customer_ref":  model.CustomerRef,
				"vat_type":      model.VATType,
				"user_id":       model.UserID,
				"version":       order.Version + 1,
				"updated_at":    model.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		order.IncrementVersion()
	}

	return syncItems(tx, order.ID, model.Items)
}

// syncItems deletes lines no longer on the order and upserts the others.
// Kept lines keep their id, so attached serialized units stay bound.
func syncItems(tx *gorm.DB, orderID uuid.UUID, items []models.OrderItemModel) error {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	del := tx.Where("order_id = ?", orderID)
	if len(ids) > 0 {
		del = del.Where("id NOT IN ?", ids)
	}
	if err := del.Delete(&models.OrderItemModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sku", "product_name", "quantity", "unit_price", "total_price"}),
	}).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to save order items: %w", err)
	}
	return nil
}
