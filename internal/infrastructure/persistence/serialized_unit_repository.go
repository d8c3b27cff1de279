package persistence

import (
	"context"
	"fmt"

	"github.com/dbcb2b/backend/internal/domain/trade"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSerializedUnitRepository implements trade.SerializedUnitRepository using GORM
type GormSerializedUnitRepository struct {
	db *gorm.DB
}

// NewGormSerializedUnitRepository creates a new GormSerializedUnitRepository
func NewGormSerializedUnitRepository(db *gorm.DB) *GormSerializedUnitRepository {
	return &GormSerializedUnitRepository{db: db}
}

func unitsOfOrder(db *gorm.DB, orderID uuid.UUID) *gorm.DB {
	return db.Model(&models.SerializedUnitModel{}).
		Where("order_item_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.OrderItemModel{}).Select("id").Where("order_id = ?", orderID))
}

// CountByOrder counts the units attached to the order's lines
func (r *GormSerializedUnitRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	if err := unitsOfOrder(r.db.WithContext(ctx), orderID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByOrder lists the order's units sorted by SKU then identifier
func (r *GormSerializedUnitRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]trade.SerializedUnit, error) {
	var rows []models.SerializedUnitModel
	if err := unitsOfOrder(r.db.WithContext(ctx), orderID).
		Order("sku ASC, imei ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	units := make([]trade.SerializedUnit, len(rows))
	for i := range rows {
		units[i] = rows[i].ToDomain()
	}
	return units, nil
}

// AttachAndSave inserts units and saves the order in one transaction. The
// attached count is re-checked inside the transaction so two concurrent
// imports cannot both attach.
func (r *GormSerializedUnitRepository) AttachAndSave(ctx context.Context, order *trade.Order, units []trade.SerializedUnit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := unitsOfOrder(tx, order.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return trade.ErrUnitsAlreadyAttached
		}

		rows := make([]*models.SerializedUnitModel, len(units))
		for i, u := range units {
			rows[i] = models.SerializedUnitModelFromDomain(u)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, upsertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert serialized units: %w", err)
			}
		}
		return saveOrder(tx, order)
	})
}

// DetachAndSave deletes every unit of the order and saves it in one transaction
func (r *GormSerializedUnitRepository) DetachAndSave(ctx context.Context, order *trade.Order) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		itemIDs := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.OrderItemModel{}).Select("id").Where("order_id = ?", order.ID)
		result := tx.Where("order_item_id IN (?)", itemIDs).Delete(&models.SerializedUnitModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete serialized units: %w", result.Error)
		}
		removed = result.RowsAffected
		return saveOrder(tx, order)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
