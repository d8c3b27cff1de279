package trade

import (
	"context"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindNeighbor(ctx context.Context, q catalog.NeighborQuery) (*catalog.Product, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKUs(ctx context.Context, skus []string) ([]catalog.Product, error) {
	args := m.Called(ctx, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) UpsertBatch(ctx context.Context, products []*catalog.Product) (*catalog.UpsertResult, error) {
	args := m.Called(ctx, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.UpsertResult), args.Error(1)
}

func (m *MockProductRepository) CreateMissing(ctx context.Context, products []*catalog.Product) (*catalog.UpsertResult, error) {
	args := m.Called(ctx, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.UpsertResult), args.Error(1)
}

func (m *MockProductRepository) DeactivateExcept(ctx context.Context, keep []string) (int64, error) {
	args := m.Called(ctx, keep)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderRepository is a mock implementation of trade.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindDraftByOwner(ctx context.Context, ownerID uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]trade.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]trade.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) SaveWithStock(ctx context.Context, order *trade.Order, plan inventory.Plan) (*inventory.ApplyResult, error) {
	args := m.Called(ctx, order, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.ApplyResult), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockStockReader is a mock implementation of inventory.StockReader
type MockStockReader struct {
	mock.Mock
}

func (m *MockStockReader) Levels(ctx context.Context, skus []string) (map[string]int, error) {
	args := m.Called(ctx, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// MockSerializedUnitRepository is a mock implementation of trade.SerializedUnitRepository
type MockSerializedUnitRepository struct {
	mock.Mock
}

func (m *MockSerializedUnitRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSerializedUnitRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]trade.SerializedUnit, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trade.SerializedUnit), args.Error(1)
}

func (m *MockSerializedUnitRepository) AttachAndSave(ctx context.Context, order *trade.Order, units []trade.SerializedUnit) error {
	return m.Called(ctx, order, units).Error(0)
}

func (m *MockSerializedUnitRepository) DetachAndSave(ctx context.Context, order *trade.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

// recordingInvalidator captures cache invalidations
type recordingInvalidator struct {
	skus []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, skus ...string) {
	r.skus = append(r.skus, skus...)
}

func createProduct(sku, name string, qty int, resale string) catalog.Product {
	p, _ := catalog.NewProduct(sku, name, qty)
	p.VATType = catalog.VATMarginal
	p.Attributes = catalog.Attributes{Color: "Black"}.WithDefaults()
	price := decimal.RequireFromString(resale)
	_ = p.SetPrices(price, price)
	return *p
}

// line builds a priced order line
func line(sku string, qty int, price string) trade.ItemLine {
	return trade.ItemLine{SKU: sku, ProductName: "Product " + sku, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

// orderIn builds an order owned by owner and walks it to status
func orderIn(status trade.OrderStatus, owner uuid.UUID, lines ...trade.ItemLine) *trade.Order {
	o, _ := trade.NewDraftOrder("Test order", &owner)
	_ = o.ReplaceItems(lines)
	if status == trade.OrderStatusDraft {
		return o
	}
	_ = o.Validate()
	if status == trade.OrderStatusPendingPayment {
		return o
	}
	_ = o.MarkShipping()
	if status == trade.OrderStatusShipping {
		return o
	}
	if status == trade.OrderStatusCompleted {
		_ = o.Complete("6A123", decimal.Zero)
		return o
	}
	_ = o.Cancel()
	return o
}

func adminPrincipal() identity.Principal {
	p, _ := identity.NewPrincipal(uuid.New(), "ops", identity.RoleAdmin)
	return p
}

func clientPrincipal() identity.Principal {
	p, _ := identity.NewPrincipal(uuid.New(), "shop", identity.RoleClient)
	return p
}
