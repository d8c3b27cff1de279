package importapp

import (
	"context"
	"errors"
	"testing"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/trade"
	csvimport "github.com/dbcb2b/backend/internal/infrastructure/import"
	"github.com/dbcb2b/backend/internal/infrastructure/strategy/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const orderFile = "SKU;Nom du produit;Quantité;Prix unitaire;TVA\n" +
	"A;iPhone 12;2;90;Marginal\n" +
	"B;iPhone 13;5;90;Marginal\n" +
	"C;Pixel 8;1;100;\n" +
	";orphan;1;1;\n"

func newOrderImportFixture() (*OrderImportService, *MockProductRepository, *MockOrderRepository, *recordingInvalidator) {
	products := new(MockProductRepository)
	orders := new(MockOrderRepository)
	cache := &recordingInvalidator{}
	classifier := NewClassifier(products, nil, pricing.NewMarginPricingStrategy())
	svc := NewOrderImportService(classifier, products, orders,
		WithOrderCacheInvalidator(cache),
		WithDraftLabels("IMPORT-AUTO", "TVA sur marge"),
	)
	return svc, products, orders, cache
}

func stubCatalog(products *MockProductRepository) {
	products.On("FindBySKUs", mock.Anything, []string{"A", "B", "C"}).Return([]catalog.Product{
		createProduct("A", "iPhone 12", 10, "120", catalog.VATMarginal, catalog.Attributes{}),
		createProduct("B", "iPhone 13", 1, "200", catalog.VATMarginal, catalog.Attributes{}),
	}, nil)
	products.On("FindNeighbor", mock.Anything, catalog.NeighborQuery{Name: "Pixel 8"}).Return(nil, nil)
}

func TestOrderImportService_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies without writing", func(t *testing.T) {
		svc, products, orders, _ := newOrderImportFixture()
		stubCatalog(products)

		preview, err := svc.Preview(ctx, adminPrincipal(), Upload{Filename: "order.csv", Data: []byte(orderFile)})

		require.NoError(t, err)
		assert.Equal(t, 4, preview.TotalRows)
		assert.Equal(t, 1, preview.SkippedRows)
		assert.Len(t, preview.Sufficient, 1)
		assert.Len(t, preview.NeedsRestock, 1)
		assert.Len(t, preview.NeedsCreation, 1)
		assert.Equal(t, 8, preview.TotalItems)
		products.AssertNotCalled(t, "CreateMissing", mock.Anything, mock.Anything)
		products.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("clients cannot import", func(t *testing.T) {
		svc, _, _, _ := newOrderImportFixture()
		_, err := svc.Preview(ctx, clientPrincipal(), Upload{Filename: "order.csv", Data: []byte(orderFile)})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("missing quantity column", func(t *testing.T) {
		svc, _, _, _ := newOrderImportFixture()
		_, err := svc.Preview(ctx, adminPrincipal(), Upload{Filename: "order.csv", Data: []byte("SKU,Prix\nA,10\n")})

		var gv *shared.GuardViolation
		require.True(t, errors.As(err, &gv))
		assert.Equal(t, csvimport.ErrCodeImportMissingColumn, gv.Code)
	})

	t.Run("unsupported file", func(t *testing.T) {
		svc, _, _, _ := newOrderImportFixture()
		_, err := svc.Preview(ctx, adminPrincipal(), Upload{Filename: "order.pdf", Data: []byte("x")})

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_FILE", de.Code)
	})

	t.Run("archive failure does not fail the preview", func(t *testing.T) {
		svc, products, _, _ := newOrderImportFixture()
		archiver := new(MockArchiver)
		svc.archiver = archiver
		stubCatalog(products)
		archiver.On("Archive", mock.Anything, KindOrders, "order.csv", mock.Anything).Return("", errors.New("bucket missing"))

		preview, err := svc.Preview(ctx, adminPrincipal(), Upload{Filename: "order.csv", Data: []byte(orderFile)})

		require.NoError(t, err)
		assert.Empty(t, preview.ArchiveKey)
		archiver.AssertExpectations(t)
	})
}

func TestOrderImportService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("writes creations, restocks and the draft", func(t *testing.T) {
		svc, products, orders, cache := newOrderImportFixture()
		stubCatalog(products)
		admin := adminPrincipal()

		products.On("CreateMissing", mock.Anything, mock.MatchedBy(func(ps []*catalog.Product) bool {
			return len(ps) == 1 && ps[0].SKU == "C" && ps[0].Quantity == 1 &&
				ps[0].ResalePrice.Equal(decimal.RequireFromString("111.00")) &&
				ps[0].VATType == catalog.VATNonMarginal
		})).Return(&catalog.UpsertResult{Written: 1}, nil)
		products.On("UpsertBatch", mock.Anything, mock.MatchedBy(func(ps []*catalog.Product) bool {
			return len(ps) == 1 && ps[0].SKU == "B" && ps[0].Quantity == 5 &&
				ps[0].ResalePrice.Equal(decimal.NewFromInt(200))
		})).Return(&catalog.UpsertResult{Written: 1}, nil)

		var saved *trade.Order
		orders.On("Save", mock.Anything, mock.AnythingOfType("*trade.Order")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*trade.Order) }).
			Return(nil)

		res, err := svc.Confirm(ctx, admin, Upload{Filename: "supplier.csv", Data: []byte(orderFile)}, "")

		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
		assert.Equal(t, 1, res.Restocked)
		require.NotNil(t, saved)
		assert.Equal(t, res.OrderID, saved.ID)
		assert.Equal(t, trade.OrderStatusDraft, saved.Status)
		assert.Equal(t, "IMPORT-AUTO", saved.CustomerRef)
		assert.Equal(t, "TVA sur marge", saved.VATLabel)
		assert.Equal(t, "Import supplier", saved.Name)
		assert.True(t, saved.IsOwnedBy(admin.UserID))
		require.Len(t, saved.Items, 3)
		assert.Equal(t, 8, saved.TotalItems)
		// 2*120 + 5*200 + 1*111
		assert.True(t, saved.TotalAmount.Equal(decimal.NewFromInt(1351)))
		assert.ElementsMatch(t, []string{"B", "C"}, cache.skus)
	})

	t.Run("conflicting creations are reported", func(t *testing.T) {
		svc, products, orders, _ := newOrderImportFixture()
		stubCatalog(products)
		products.On("CreateMissing", mock.Anything, mock.Anything).
			Return(&catalog.UpsertResult{Conflicts: []string{"C"}, UsedFallback: true}, nil)
		products.On("UpsertBatch", mock.Anything, mock.Anything).Return(&catalog.UpsertResult{Written: 1}, nil)
		orders.On("Save", mock.Anything, mock.Anything).Return(nil)

		res, err := svc.Confirm(ctx, adminPrincipal(), Upload{Filename: "order.csv", Data: []byte(orderFile)}, "Weekly")

		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, []string{"C"}, res.Conflicts)
	})

	t.Run("store failure aborts before the draft", func(t *testing.T) {
		svc, products, orders, _ := newOrderImportFixture()
		stubCatalog(products)
		products.On("CreateMissing", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

		_, err := svc.Confirm(ctx, adminPrincipal(), Upload{Filename: "order.csv", Data: []byte(orderFile)}, "")

		assert.Error(t, err)
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("no importable rows", func(t *testing.T) {
		svc, products, _, _ := newOrderImportFixture()
		products.On("FindBySKUs", mock.Anything, []string{}).Return([]catalog.Product{}, nil)

		_, err := svc.Confirm(ctx, adminPrincipal(), Upload{Filename: "order.csv", Data: []byte("SKU;Qty\nA;0\n")}, "")

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "EMPTY_ORDER", de.Code)
	})
}
