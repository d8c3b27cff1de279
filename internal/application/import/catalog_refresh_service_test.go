package importapp

import (
	"context"
	"errors"
	"testing"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/infrastructure/strategy/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const catalogFile = "sku,product name,quantity,price,vat type,appearance,functionality,color\n" +
	"A,iPhone 12,3,100,Marginal,Grade B,,Black\n" +
	"B,,0,50,,,,\n" +
	"C,Pixel 8,2,0,non marginal,,,\n" +
	"D,Galaxy S21,1,200,marginale,,,\n" +
	"A,iPhone 12,5,100,Marginal,Grade B,,Black\n"

func findProduct(ps []*catalog.Product, sku string) *catalog.Product {
	for _, p := range ps {
		if p.SKU == sku {
			return p
		}
	}
	return nil
}

func TestCatalogRefreshService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts rows and deactivates missing SKUs", func(t *testing.T) {
		repo := new(MockProductRepository)
		cache := &recordingInvalidator{}
		svc := NewCatalogRefreshService(repo, pricing.NewMarginPricingStrategy(), WithCatalogCacheInvalidator(cache))

		var written []*catalog.Product
		repo.On("UpsertBatch", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { written = args.Get(1).([]*catalog.Product) }).
			Return(&catalog.UpsertResult{Written: 3}, nil)
		repo.On("DeactivateExcept", mock.Anything, []string{"A", "C", "D"}).Return(int64(7), nil)

		res, err := svc.Refresh(ctx, adminPrincipal(), Upload{Filename: "stock.csv", Data: []byte(catalogFile)})

		require.NoError(t, err)
		assert.Equal(t, 5, res.TotalRows)
		assert.Equal(t, 1, res.Skipped, "zero quantity row")
		assert.Equal(t, 1, res.Duplicates)
		assert.Equal(t, 3, res.Imported)
		assert.Equal(t, 2, res.Marginal)
		assert.Equal(t, 1, res.NonMarginal)
		assert.Equal(t, 1, res.InvalidPrice)
		assert.Equal(t, 3, res.Active)
		assert.Equal(t, int64(7), res.Deactivated)
		assert.Equal(t, 1, cache.all)

		require.Len(t, written, 3)
		a := findProduct(written, "A")
		require.NotNil(t, a)
		assert.Equal(t, 5, a.Quantity, "last row wins")
		assert.Equal(t, catalog.VATMarginal, a.VATType)
		assert.True(t, a.ResalePrice.Equal(decimal.RequireFromString("101.00")))
		assert.Equal(t, "Grade B", a.Attributes.Appearance)
		assert.Equal(t, catalog.DefaultFunctionality, a.Attributes.Functionality)
		assert.Equal(t, catalog.DefaultItemGroup, a.Attributes.ItemGroup)

		c := findProduct(written, "C")
		require.NotNil(t, c)
		assert.Equal(t, catalog.VATNonMarginal, c.VATType)
		assert.True(t, c.ResalePrice.IsZero())

		d := findProduct(written, "D")
		require.NotNil(t, d)
		assert.Equal(t, catalog.VATMarginal, d.VATType)
		assert.True(t, d.ResalePrice.Equal(decimal.RequireFromString("202.00")))
	})

	t.Run("keeps missing SKUs when disabled", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewCatalogRefreshService(repo, pricing.NewMarginPricingStrategy(), WithDeactivateMissing(false))
		repo.On("UpsertBatch", mock.Anything, mock.Anything).Return(&catalog.UpsertResult{Written: 3}, nil)

		res, err := svc.Refresh(ctx, adminPrincipal(), Upload{Filename: "stock.csv", Data: []byte(catalogFile)})

		require.NoError(t, err)
		assert.Zero(t, res.Deactivated)
		repo.AssertNotCalled(t, "DeactivateExcept", mock.Anything, mock.Anything)
	})

	t.Run("write failure", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewCatalogRefreshService(repo, pricing.NewMarginPricingStrategy())
		repo.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := svc.Refresh(ctx, adminPrincipal(), Upload{Filename: "stock.csv", Data: []byte(catalogFile)})

		assert.Error(t, err)
		repo.AssertNotCalled(t, "DeactivateExcept", mock.Anything, mock.Anything)
	})

	t.Run("requires import permission", func(t *testing.T) {
		svc := NewCatalogRefreshService(new(MockProductRepository), pricing.NewMarginPricingStrategy())
		_, err := svc.Refresh(ctx, clientPrincipal(), Upload{Filename: "stock.csv", Data: []byte(catalogFile)})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}
