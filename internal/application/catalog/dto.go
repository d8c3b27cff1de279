package catalog

import (
	"time"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductResponse is the catalog view of a product
type ProductResponse struct {
	SKU            string           `json:"sku"`
	Name           string           `json:"product_name"`
	Appearance     string           `json:"appearance"`
	Functionality  string           `json:"functionality"`
	Boxed          string           `json:"boxed"`
	Color          string           `json:"color"`
	AdditionalInfo string           `json:"additional_info"`
	ItemGroup      string           `json:"item_group"`
	CloudLock      string           `json:"cloud_lock"`
	VATType        string           `json:"vat_type"`
	VATLabel       string           `json:"vat_label"`
	SupplierPrice  *decimal.Decimal `json:"price,omitempty"`
	ResalePrice    decimal.Decimal  `json:"price_dbc"`
	Quantity       int              `json:"quantity"`
	IsActive       bool             `json:"is_active"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// HideCost drops the supplier price, which only operators may see
func (r *ProductResponse) HideCost() {
	r.SupplierPrice = nil
}

// ToProductResponse maps a domain product
func ToProductResponse(p *catalog.Product) ProductResponse {
	cost := p.SupplierPrice
	return ProductResponse{
		SKU:            p.SKU,
		Name:           p.Name,
		Appearance:     p.Attributes.Appearance,
		Functionality:  p.Attributes.Functionality,
		Boxed:          p.Attributes.Boxed,
		Color:          p.Attributes.Color,
		AdditionalInfo: p.Attributes.AdditionalInfo,
		ItemGroup:      p.Attributes.ItemGroup,
		CloudLock:      p.Attributes.CloudLock,
		VATType:        string(p.VATType),
		VATLabel:       p.VATType.Label(),
		SupplierPrice:  &cost,
		ResalePrice:    p.ResalePrice,
		Quantity:       p.Quantity,
		IsActive:       p.IsActive,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProductResponses maps a slice of domain products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}

// ProductListFilter holds catalog listing parameters
type ProductListFilter struct {
	Search     string
	ActiveOnly bool
	VATType    string
	Page       int
	PageSize   int
	OrderBy    string
	OrderDir   string
}

// NeighborRequest describes an unknown product to resolve against the catalog
type NeighborRequest struct {
	Name          string
	Appearance    string
	Functionality string
	VATType       string
}

// NeighborResponse is the outcome of a neighbor resolution. Product is nil
// when no strategy matched.
type NeighborResponse struct {
	Matched  bool             `json:"matched"`
	Strategy string           `json:"strategy,omitempty"`
	Product  *ProductResponse `json:"product,omitempty"`
}
