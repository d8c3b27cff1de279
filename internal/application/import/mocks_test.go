package importapp

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

// MockArchiver is a mock implementation of Archiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, kind, filename string, data []byte) (string, error) {
	args := m.Called(ctx, kind, filename, data)
	return args.String(0), args.Error(1)
}

// recordingInvalidator captures cache invalidations
type recordingInvalidator struct {
	skus []string
	all  int
}

func (r *recordingInvalidator) Invalidate(_ context.Context, skus ...string) {
	r.skus = append(r.skus, skus...)
}

func (r *recordingInvalidator) InvalidateAll(context.Context) {
	r.all++
}

func createProduct(sku, name string, qty int, resale string, vat catalog.VATType, attrs catalog.Attributes) catalog.Product {
	p, _ := catalog.NewProduct(sku, name, qty)
	p.VATType = vat
	p.Attributes = attrs
	price := decimal.RequireFromString(resale)
	_ = p.SetPrices(price, price)
	return *p
}

func adminPrincipal() identity.Principal {
	p, _ := identity.NewPrincipal(uuid.New(), "ops", identity.RoleAdmin)
	return p
}

func clientPrincipal() identity.Principal {
	p, _ := identity.NewPrincipal(uuid.New(), "shop", identity.RoleClient)
	return p
}
