package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// decrementStockSQL takes units out of stock only when enough are on hand.
// Zero affected rows means a concurrent writer got there first.
const decrementStockSQL = "UPDATE products SET quantity = quantity - ?, updated_at = ? WHERE sku = ? AND quantity >= ?"

type stockRow struct {
	SKU      string
	Quantity int
}

func readLevels(db *gorm.DB, skus []string, forUpdate bool) (map[string]int, error) {
	levels := make(map[string]int, len(skus))
	if len(skus) == 0 {
		return levels, nil
	}
	query := db.Model(&models.ProductModel{}).Select("sku", "quantity").Where("sku IN ?", skus).Order("sku")
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []stockRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read stock levels: %w", err)
	}
	for _, r := range rows {
		levels[r.SKU] = r.Quantity
	}
	return levels, nil
}

// Apply runs the plan in its own transaction
func (r *GormProductRepository) Apply(ctx context.Context, plan inventory.Plan) (*inventory.ApplyResult, error) {
	var result *inventory.ApplyResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = applyPlan(tx, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyPlan applies every movement of plan on tx. Sufficiency of all
// removals is checked on locked rows before any write; each removal is then
// a conditional decrement, so a lost race still aborts with an
// insufficient-stock violation. The caller owns the transaction and must
// roll back on error.
func applyPlan(tx *gorm.DB, plan inventory.Plan) (*inventory.ApplyResult, error) {
	result := &inventory.ApplyResult{Mutations: []inventory.StockMutation{}}
	if plan.IsEmpty() {
		return result, nil
	}

	levels, err := readLevels(tx, plan.SKUs(), true)
	if err != nil {
		return nil, err
	}
	if err := plan.CheckSufficiency(levels); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, m := range plan.Movements {
		current, known := levels[m.SKU]
		switch m.Kind {
		case inventory.MovementRemove:
			res := tx.Exec(decrementStockSQL, m.Quantity, now, m.SKU, m.Quantity)
			if res.Error != nil {
				return nil, fmt.Errorf("failed to decrement stock of %s: %w", m.SKU, res.Error)
			}
			if res.RowsAffected == 0 {
				fresh, err := readLevels(tx, []string{m.SKU}, false)
				if err != nil {
					return nil, err
				}
				return nil, inventory.NewInsufficientStockError([]shared.Offender{{Key: m.SKU, Expected: m.Quantity, Found: fresh[m.SKU]}})
			}
		case inventory.MovementAddBack:
			if !known {
				result.Skipped = append(result.Skipped, m.SKU)
				continue
			}
			updates := map[string]any{
				"quantity":   gorm.Expr("quantity + ?", m.Quantity),
				"updated_at": now,
			}
			if m.Deactivate {
				updates["is_active"] = false
			}
			if err := tx.Model(&models.ProductModel{}).Where("sku = ?", m.SKU).UpdateColumns(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to restore stock of %s: %w", m.SKU, err)
			}
		}

		next := current + m.Signed()
		levels[m.SKU] = next
		result.Mutations = append(result.Mutations, inventory.StockMutation{
			SKU:         m.SKU,
			Kind:        m.Kind,
			OldQuantity: current,
			NewQuantity: next,
			Delta:       m.Signed(),
			Deactivated: m.Deactivate,
		})
	}
	return result, nil
}
