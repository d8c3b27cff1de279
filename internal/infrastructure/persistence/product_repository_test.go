package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupCatalogTestDB opens an in-memory database on a single connection so
// every query and transaction sees the same schema.
func setupCatalogTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestProduct(t *testing.T, sku, name string, qty int) *catalog.Product {
	p, err := catalog.NewProduct(sku, name, qty)
	require.NoError(t, err)
	return p
}

func seedProducts(t *testing.T, repo *GormProductRepository, products ...*catalog.Product) {
	for _, p := range products {
		require.NoError(t, repo.Save(context.Background(), p))
	}
}

func TestGormProductRepository_SaveAndFind(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := newTestProduct(t, "IP12-128-BLK", "iPhone 12 128GB", 4)
	p.VATType = catalog.VATMarginal
	p.Attributes.Appearance = "Grade A"
	require.NoError(t, p.SetPrices(decimal.RequireFromString("300.50"), decimal.NewFromInt(349)))
	seedProducts(t, repo, p)

	t.Run("finds by trimmed sku", func(t *testing.T) {
		got, err := repo.FindBySKU(ctx, "  IP12-128-BLK ")
		require.NoError(t, err)
		assert.Equal(t, "iPhone 12 128GB", got.Name)
		assert.Equal(t, 4, got.Quantity)
		assert.Equal(t, catalog.VATMarginal, got.VATType)
		assert.Equal(t, "Grade A", got.Attributes.Appearance)
		assert.True(t, got.SupplierPrice.Equal(decimal.RequireFromString("300.5")))
		assert.True(t, got.ResalePrice.Equal(decimal.NewFromInt(349)))
		assert.True(t, got.IsActive)
	})

	t.Run("unknown sku", func(t *testing.T) {
		_, err := repo.FindBySKU(ctx, "NOPE")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save again updates by sku", func(t *testing.T) {
		again := newTestProduct(t, "IP12-128-BLK", "iPhone 12 128GB Black", 0)
		again.IsActive = false
		require.NoError(t, repo.Save(ctx, again))

		got, err := repo.FindBySKU(ctx, "IP12-128-BLK")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID, "the stored row keeps its id")
		assert.Equal(t, "iPhone 12 128GB Black", got.Name)
		assert.Equal(t, 0, got.Quantity)
		assert.False(t, got.IsActive)
	})

	t.Run("find by skus ignores unknown", func(t *testing.T) {
		got, err := repo.FindBySKUs(ctx, []string{"IP12-128-BLK", "NOPE"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "IP12-128-BLK", got[0].SKU)

		empty, err := repo.FindBySKUs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestGormProductRepository_UpsertBatch(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	seedProducts(t, repo, newTestProduct(t, "A", "Pixel 7", 1))

	res, err := repo.UpsertBatch(ctx, []*catalog.Product{
		newTestProduct(t, "A", "Pixel 7 Pro", 9),
		newTestProduct(t, "B", "Galaxy S21", 2),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.False(t, res.UsedFallback)
	assert.Empty(t, res.Conflicts)

	levels, err := repo.Levels(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 9, "B": 2}, levels)

	a, err := repo.FindBySKU(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Pixel 7 Pro", a.Name)

	t.Run("empty batch", func(t *testing.T) {
		res, err := repo.UpsertBatch(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, res.Written)
	})
}

func TestGormProductRepository_CreateMissing(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	seedProducts(t, repo, newTestProduct(t, "A", "Pixel 7", 5))

	res, err := repo.CreateMissing(ctx, []*catalog.Product{
		newTestProduct(t, "A", "Overwritten?", 0),
		newTestProduct(t, "NEW", "", 0),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, []string{"A"}, res.Conflicts, "existing SKUs are reported as skipped")
	assert.False(t, res.UsedFallback)

	a, err := repo.FindBySKU(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Pixel 7", a.Name, "existing rows are left untouched")
	assert.Equal(t, 5, a.Quantity)

	created, err := repo.FindBySKU(ctx, "NEW")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultProductName("NEW"), created.Name)
	assert.False(t, created.IsActive)
}

func TestGormProductRepository_CreateMissingReportsEveryExistingSKU(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	seedProducts(t, repo, newTestProduct(t, "A", "Pixel 7", 5), newTestProduct(t, "C", "iPhone 12", 1))

	res, err := repo.CreateMissing(ctx, []*catalog.Product{
		newTestProduct(t, "A", "", 0),
		newTestProduct(t, "B", "", 0),
		newTestProduct(t, "C", "", 0),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.ElementsMatch(t, []string{"A", "C"}, res.Conflicts)
}

func TestGormProductRepository_UpsertBatchFallsBackPerRow(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	existing := newTestProduct(t, "A", "Pixel 7", 5)
	seedProducts(t, repo, existing)

	// Reusing a stored id fails the batch outside the SKU conflict target
	clash := newTestProduct(t, "B", "Galaxy S21", 2)
	clash.ID = existing.ID

	res, err := repo.UpsertBatch(ctx, []*catalog.Product{
		clash,
		newTestProduct(t, "C", "iPhone 12", 3),
	})

	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, []string{"B"}, res.Conflicts)
	assert.Equal(t, 1, res.Written)

	levels, err := repo.Levels(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 5, "C": 3}, levels)
}

func TestGormProductRepository_DeactivateExcept(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	idle := newTestProduct(t, "IDLE", "Idle", 0)
	idle.IsActive = false
	seedProducts(t, repo,
		newTestProduct(t, "KEEP", "Kept", 3),
		newTestProduct(t, "DROP1", "Dropped", 2),
		newTestProduct(t, "DROP2", "Dropped", 7),
		idle,
	)

	n, err := repo.DeactivateExcept(ctx, []string{"KEEP"})

	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "already idle products are not counted")

	levels, err := repo.Levels(ctx, []string{"KEEP", "DROP1", "DROP2", "IDLE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"KEEP": 3, "DROP1": 0, "DROP2": 0, "IDLE": 0}, levels)

	dropped, err := repo.FindBySKU(ctx, "DROP1")
	require.NoError(t, err)
	assert.False(t, dropped.IsActive)

	kept, err := repo.FindBySKU(ctx, "KEEP")
	require.NoError(t, err)
	assert.True(t, kept.IsActive)
}

func TestGormProductRepository_FindNeighbor(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	mk := func(sku, appearance string, vat catalog.VATType, active bool) *catalog.Product {
		p := newTestProduct(t, sku, "iPhone 12 128GB", 1)
		p.Attributes.Appearance = appearance
		p.Attributes.Functionality = "Working"
		p.VATType = vat
		p.IsActive = active
		return p
	}
	seedProducts(t, repo,
		mk("Z-1", "Grade A", catalog.VATMarginal, true),
		mk("B-1", "Grade A", catalog.VATMarginal, true),
		mk("A-1", "Grade A", catalog.VATMarginal, false),
		mk("C-1", "Grade B", catalog.VATNonMarginal, true),
	)

	t.Run("first active match by sku", func(t *testing.T) {
		got, err := repo.FindNeighbor(ctx, catalog.NeighborQuery{
			Name: "  IPHONE 12 128gb ", Appearance: "grade a", Functionality: "WORKING", VATType: catalog.VATMarginal,
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "B-1", got.SKU)
	})

	t.Run("empty attributes are not constrained", func(t *testing.T) {
		got, err := repo.FindNeighbor(ctx, catalog.NeighborQuery{Name: "iphone 12 128gb"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "B-1", got.SKU)
	})

	t.Run("vat narrows the match", func(t *testing.T) {
		got, err := repo.FindNeighbor(ctx, catalog.NeighborQuery{Name: "iPhone 12 128GB", VATType: catalog.VATNonMarginal})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "C-1", got.SKU)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := repo.FindNeighbor(ctx, catalog.NeighborQuery{Name: "Galaxy S21"})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestGormProductRepository_FindAll(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	marginal := newTestProduct(t, "IP13", "iPhone 13", 2)
	marginal.VATType = catalog.VATMarginal
	seedProducts(t, repo,
		newTestProduct(t, "IP12", "iPhone 12", 1),
		marginal,
		newTestProduct(t, "S21", "Galaxy S21", 0),
	)

	t.Run("search matches sku or name", func(t *testing.T) {
		got, total, err := repo.FindAll(ctx, catalog.ProductFilter{Filter: shared.Filter{Search: "IPHONE"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, got, 2)
		assert.Equal(t, "IP12", got[0].SKU)
	})

	t.Run("active only with vat", func(t *testing.T) {
		got, total, err := repo.FindAll(ctx, catalog.ProductFilter{ActiveOnly: true, VATType: catalog.VATMarginal})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, "IP13", got[0].SKU)
	})

	t.Run("paging keeps the total", func(t *testing.T) {
		got, total, err := repo.FindAll(ctx, catalog.ProductFilter{
			Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "sku", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, got, 1)
		assert.Equal(t, "S21", got[0].SKU)
	})

	t.Run("unknown sort field falls back to sku", func(t *testing.T) {
		got, _, err := repo.FindAll(ctx, catalog.ProductFilter{Filter: shared.Filter{OrderBy: "1; DROP TABLE products"}})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "IP12", got[0].SKU)
	})
}

func TestIsConflictError(t *testing.T) {
	assert.False(t, IsConflictError(nil))
	assert.True(t, IsConflictError(gorm.ErrDuplicatedKey))
	assert.True(t, IsConflictError(errors.New("UNIQUE constraint failed: products.sku")))
	assert.True(t, IsConflictError(errors.New(`pq: duplicate key value violates unique constraint "idx_products_sku"`)))
	assert.False(t, IsConflictError(assert.AnError))
}
