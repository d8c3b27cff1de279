package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceFinder struct {
	products []*Product
	queries  []NeighborQuery
	err      error
}

func (f *sliceFinder) FindNeighbor(_ context.Context, q NeighborQuery) (*Product, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if q.Matches(p) {
			return p, nil
		}
	}
	return nil, nil
}

func newNeighbor(sku, name, appearance, functionality string, vat VATType) *Product {
	p, _ := NewProduct(sku, name, 5)
	p.Attributes = Attributes{Appearance: appearance, Functionality: functionality}
	p.VATType = vat
	return p
}

func TestNeighborResolver_Resolve(t *testing.T) {
	exact := newNeighbor("N-1", "iPhone 12", "Grade A", "Working", VATMarginal)
	relaxed := newNeighbor("N-2", "iPhone 12", "Grade A", "Working", VATNonMarginal)
	nameOnly := newNeighbor("N-3", "iPhone 12", "Grade C", "Broken", VATNonMarginal)

	t.Run("prefers identical grades and VAT", func(t *testing.T) {
		f := &sliceFinder{products: []*Product{nameOnly, relaxed, exact}}
		r := NewNeighborResolver(f, nil)

		m, err := r.Resolve(context.Background(), NeighborProbe{Name: "iphone 12", Appearance: "grade a", Functionality: "Working", VATType: VATMarginal})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "N-1", m.Product.SKU)
		assert.Equal(t, NeighborExact, m.Strategy)
		assert.Len(t, f.queries, 1)
	})

	t.Run("falls back to grades ignoring VAT", func(t *testing.T) {
		f := &sliceFinder{products: []*Product{nameOnly, relaxed}}
		m, err := NewNeighborResolver(f, nil).Resolve(context.Background(),
			NeighborProbe{Name: "iPhone 12", Appearance: "Grade A", Functionality: "Working", VATType: VATMarginal})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "N-2", m.Product.SKU)
		assert.Equal(t, NeighborRelaxed, m.Strategy)
	})

	t.Run("falls back to name only", func(t *testing.T) {
		f := &sliceFinder{products: []*Product{nameOnly}}
		m, err := NewNeighborResolver(f, nil).Resolve(context.Background(),
			NeighborProbe{Name: "iPhone 12", Appearance: "Grade A", Functionality: "Working"})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, NeighborNameOnly, m.Strategy)
		// exact is skipped without VAT
		assert.Len(t, f.queries, 2)
	})

	t.Run("ignores inactive products", func(t *testing.T) {
		inactive := newNeighbor("N-4", "Pixel 6", "Grade A", "Working", VATMarginal)
		inactive.Deactivate()
		f := &sliceFinder{products: []*Product{inactive}}

		m, err := NewNeighborResolver(f, nil).Resolve(context.Background(), NeighborProbe{Name: "Pixel 6"})
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("nameless probe never matches", func(t *testing.T) {
		f := &sliceFinder{products: []*Product{exact}}
		m, err := NewNeighborResolver(f, nil).Resolve(context.Background(), NeighborProbe{Name: " "})
		require.NoError(t, err)
		assert.Nil(t, m)
		assert.Empty(t, f.queries)
	})

	t.Run("propagates finder errors", func(t *testing.T) {
		f := &sliceFinder{err: errors.New("connection reset")}
		_, err := NewNeighborResolver(f, nil).Resolve(context.Background(), NeighborProbe{Name: "x"})
		assert.Error(t, err)
	})
}

func TestNeighborProbe_Key(t *testing.T) {
	a := NeighborProbe{Name: " iPhone 12 ", Appearance: "Grade A", Functionality: "Working", VATType: VATMarginal}
	b := NeighborProbe{Name: "IPHONE 12", Appearance: "grade a", Functionality: "working", VATType: VATMarginal}
	assert.Equal(t, a.Key(), b.Key())
}
