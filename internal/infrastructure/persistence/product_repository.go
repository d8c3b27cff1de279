package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize bounds the rows per INSERT statement
const upsertBatchSize = 500

var productUpsertColumns = []string{
	"product_name", "appearance", "functionality", "boxed", "color",
	"additional_info", "item_group", "cloud_lock", "vat_type",
	"price", "price_dbc", "quantity", "is_active", "updated_at",
}

// GormProductRepository implements catalog.ProductRepository and the
// inventory stock ports using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Where("sku = ?", strings.TrimSpace(sku)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySKUs finds the known products among skus
func (r *GormProductRepository) FindBySKUs(ctx context.Context, skus []string) ([]catalog.Product, error) {
	if len(skus) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("sku IN ?", skus).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(rows), nil
}

// FindNeighbor returns the first active product, by SKU, matching the query
func (r *GormProductRepository) FindNeighbor(ctx context.Context, q catalog.NeighborQuery) (*catalog.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("is_active = ?", true).
		Where("LOWER(TRIM(product_name)) = ?", strings.ToLower(strings.TrimSpace(q.Name)))
	if q.Appearance != "" {
		query = query.Where("LOWER(appearance) = ?", strings.ToLower(q.Appearance))
	}
	if q.Functionality != "" {
		query = query.Where("LOWER(functionality) = ?", strings.ToLower(q.Functionality))
	}
	if q.VATType != catalog.VATUnset {
		query = query.Where("vat_type = ?", q.VATType)
	}

	var rows []models.ProductModel
	if err := query.Order("sku ASC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// FindAll finds all products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{})
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(sku) LIKE ? OR LOWER(product_name) LIKE ?", pattern, pattern)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.VATType != catalog.VATUnset {
		query = query.Where("vat_type = ?", filter.VATType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	if err := applyPaging(query, filter.Filter, ProductSortFields, "sku", "ASC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainProducts(rows), total, nil
}

// Save creates or updates a single product keyed on its SKU
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns(productUpsertColumns),
		}).
		Create(model).Error
}

// UpsertBatch writes products keyed on SKU in batches inside one transaction.
// When the batch fails on a uniqueness conflict, rows are written one at a
// time and the conflicting ones are reported instead of failing the run.
func (r *GormProductRepository) UpsertBatch(ctx context.Context, products []*catalog.Product) (*catalog.UpsertResult, error) {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(productUpsertColumns),
	}
	return r.write(ctx, products, conflict)
}

// CreateMissing inserts products whose SKU is unknown and leaves existing
// rows untouched. SKUs that already existed, or were created by a concurrent
// writer, are reported as conflicts.
func (r *GormProductRepository) CreateMissing(ctx context.Context, products []*catalog.Product) (*catalog.UpsertResult, error) {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoNothing: true,
	}
	return r.write(ctx, products, conflict)
}

func (r *GormProductRepository) write(ctx context.Context, products []*catalog.Product, conflict clause.OnConflict) (*catalog.UpsertResult, error) {
	if len(products) == 0 {
		return &catalog.UpsertResult{}, nil
	}
	rows := make([]*models.ProductModel, len(products))
	for i, p := range products {
		rows[i] = models.ProductModelFromDomain(p)
	}

	res := &catalog.UpsertResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(conflict).CreateInBatches(rows, upsertBatchSize)
		if result.Error != nil {
			return result.Error
		}
		res.Written = int(result.RowsAffected)
		if !conflict.DoNothing {
			return nil
		}
		skipped, err := skippedRows(tx, rows)
		res.Conflicts = skipped
		return err
	})
	if err == nil {
		return res, nil
	}
	if !IsConflictError(err) {
		return nil, fmt.Errorf("failed to write products: %w", err)
	}

	res = &catalog.UpsertResult{UsedFallback: true}
	for _, row := range rows {
		result := r.db.WithContext(ctx).Clauses(conflict).Create(row)
		switch {
		case IsConflictError(result.Error):
			res.Conflicts = append(res.Conflicts, row.SKU)
		case result.Error != nil:
			return nil, fmt.Errorf("failed to write product %s: %w", row.SKU, result.Error)
		case result.RowsAffected == 0:
			// DO NOTHING swallowed an existing SKU
			res.Conflicts = append(res.Conflicts, row.SKU)
		default:
			res.Written += int(result.RowsAffected)
		}
	}
	return res, nil
}

// skippedRows returns the SKUs of rows an ON CONFLICT DO NOTHING insert left
// out: their SKU is stored under another id.
func skippedRows(tx *gorm.DB, rows []*models.ProductModel) ([]string, error) {
	skus := make([]string, len(rows))
	for i, row := range rows {
		skus[i] = row.SKU
	}

	stored := make(map[string]uuid.UUID, len(rows))
	for start := 0; start < len(skus); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(skus))
		var found []models.ProductModel
		if err := tx.Select("id", "sku").Where("sku IN ?", skus[start:end]).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("failed to check written products: %w", err)
		}
		for _, f := range found {
			stored[f.SKU] = f.ID
		}
	}

	var skipped []string
	for _, row := range rows {
		if stored[row.SKU] != row.ID {
			skipped = append(skipped, row.SKU)
		}
	}
	return skipped, nil
}

// DeactivateExcept zeroes quantity and clears the active flag of every
// product not in keep
func (r *GormProductRepository) DeactivateExcept(ctx context.Context, keep []string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("quantity <> 0 OR is_active = ?", true)
	if len(keep) > 0 {
		query = query.Where("sku NOT IN ?", keep)
	}
	result := query.UpdateColumns(map[string]any{
		"quantity":   0,
		"is_active":  false,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Levels returns on-hand quantities of the known SKUs
func (r *GormProductRepository) Levels(ctx context.Context, skus []string) (map[string]int, error) {
	return readLevels(r.db.WithContext(ctx), skus, false)
}

// IsConflictError reports whether err is a uniqueness or ON CONFLICT
// cardinality violation, for postgres and sqlite
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"duplicate key", "23505", "UNIQUE constraint failed", "cannot affect row a second time", "21000"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func toDomainProducts(rows []models.ProductModel) []catalog.Product {
	out := make([]catalog.Product, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}
