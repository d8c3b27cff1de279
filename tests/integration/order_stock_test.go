//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	tradeapp "github.com/dbcb2b/backend/internal/application/trade"
	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	db       *TestDB
	products *persistence.GormProductRepository
	service  *tradeapp.OrderService
	admin    identity.Principal
}

func newOrderFixture(t *testing.T, policy tradeapp.OrderPolicy) *orderFixture {
	t.Helper()
	db := NewTestDB(t)
	products := persistence.NewGormProductRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	return &orderFixture{
		db:       db,
		products: products,
		service:  tradeapp.NewOrderService(orders, products, products, tradeapp.WithOrderPolicy(policy)),
		admin:    identity.Principal{UserID: uuid.New(), Username: "admin", Role: identity.RoleAdmin},
	}
}

func (f *orderFixture) seed(t *testing.T, sku string, qty int, resale string) {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Device "+sku, qty)
	require.NoError(t, err)
	require.NoError(t, p.SetPrices(decimal.RequireFromString(resale).Sub(decimal.NewFromInt(10)), decimal.RequireFromString(resale)))
	require.NoError(t, f.products.Save(context.Background(), p))
}

func (f *orderFixture) draft(t *testing.T, items ...tradeapp.ItemRequest) uuid.UUID {
	t.Helper()
	resp, err := f.service.CreateDraft(context.Background(), f.admin, tradeapp.CreateDraftRequest{Name: "Batch", Items: items})
	require.NoError(t, err)
	return resp.ID
}

func TestOrderValidation_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newOrderFixture(t, tradeapp.OrderPolicy{})
	f.seed(t, "IPH13-128-A", 5, "450.00")

	const competitors = 6
	ids := make([]uuid.UUID, competitors)
	for i := range ids {
		ids[i] = f.draft(t, tradeapp.ItemRequest{SKU: "IPH13-128-A", Quantity: 3})
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.service.Validate(context.Background(), f.admin, id)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			var gv *shared.GuardViolation
			if assert.True(t, errors.As(err, &gv), "unexpected error: %v", err) {
				assert.Equal(t, shared.ErrInsufficientStock.Code, gv.Code)
				assert.Equal(t, []string{"IPH13-128-A"}, gv.OffenderKeys())
				rejected++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, competitors-1, rejected)
	assert.Equal(t, 2, f.db.Quantity("IPH13-128-A"))
}

func TestOrderValidation_ShortfallLeavesEveryLineUntouched(t *testing.T) {
	f := newOrderFixture(t, tradeapp.OrderPolicy{})
	f.seed(t, "S21-256-B", 10, "320.00")
	f.seed(t, "PIX7-128-A", 1, "280.00")

	id := f.draft(t,
		tradeapp.ItemRequest{SKU: "S21-256-B", Quantity: 4},
		tradeapp.ItemRequest{SKU: "PIX7-128-A", Quantity: 2},
	)

	_, err := f.service.Validate(context.Background(), f.admin, id)

	var gv *shared.GuardViolation
	require.True(t, errors.As(err, &gv))
	assert.Equal(t, []string{"PIX7-128-A"}, gv.OffenderKeys())
	assert.Equal(t, 10, f.db.Quantity("S21-256-B"))
	assert.Equal(t, 1, f.db.Quantity("PIX7-128-A"))

	order, err := f.service.Get(context.Background(), f.admin, id)
	require.NoError(t, err)
	assert.Equal(t, "draft", order.Status)
}

func TestOrderCancel_RestoresStockWhenEnabled(t *testing.T) {
	f := newOrderFixture(t, tradeapp.OrderPolicy{RestoreStockOnCancel: true})
	f.seed(t, "IPADAIR-64-C", 4, "210.00")

	id := f.draft(t, tradeapp.ItemRequest{SKU: "IPADAIR-64-C", Quantity: 4})
	_, err := f.service.Validate(context.Background(), f.admin, id)
	require.NoError(t, err)
	assert.Equal(t, 0, f.db.Quantity("IPADAIR-64-C"))

	report, err := f.service.Cancel(context.Background(), f.admin, id)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", report.Order.Status)
	assert.Equal(t, 4, f.db.Quantity("IPADAIR-64-C"))
}

func TestProductRepository_UpsertBatchKeepsSKUUnique(t *testing.T) {
	f := newOrderFixture(t, tradeapp.OrderPolicy{})
	ctx := context.Background()

	first, err := catalog.NewProduct("MBA-M1-256", "MacBook Air", 3)
	require.NoError(t, err)
	_, err = f.products.UpsertBatch(ctx, []*catalog.Product{first})
	require.NoError(t, err)

	again, err := catalog.NewProduct("MBA-M1-256", "MacBook Air M1", 7)
	require.NoError(t, err)
	_, err = f.products.UpsertBatch(ctx, []*catalog.Product{again})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.DB.Table("products").Where("sku = ?", "MBA-M1-256").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 7, f.db.Quantity("MBA-M1-256"))

	stored, err := f.products.FindBySKU(ctx, "MBA-M1-256")
	require.NoError(t, err)
	assert.Equal(t, "MacBook Air M1", stored.Name)
}
