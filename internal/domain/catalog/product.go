package catalog

import (
	"fmt"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VATType is the regulatory VAT classification of a refurbished product.
// It decides the resale margin applied by the pricing rule.
type VATType string

const (
	VATMarginal    VATType = "marginal"
	VATNonMarginal VATType = "non_marginal"
	VATUnset       VATType = ""
)

// IsValid reports whether the classification is a known value (unset included)
func (v VATType) IsValid() bool {
	switch v {
	case VATMarginal, VATNonMarginal, VATUnset:
		return true
	}
	return false
}

// OrDefault returns non_marginal for an unset classification
func (v VATType) OrDefault() VATType {
	if v == VATUnset {
		return VATNonMarginal
	}
	return v
}

// Label returns the human label used in spreadsheets and invoices
func (v VATType) Label() string {
	switch v {
	case VATMarginal:
		return "Marginal"
	case VATNonMarginal:
		return "Non marginal"
	}
	return ""
}

// ParseVATType maps free-form supplier spellings ("Marginal", "Non marginal",
// "non-marginal", "NON_MARGINAL", "margin") onto a VATType.
func ParseVATType(raw string) VATType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return VATUnset
	}
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	if strings.Contains(s, "non") {
		return VATNonMarginal
	}
	if strings.HasPrefix(s, "marg") {
		return VATMarginal
	}
	return VATUnset
}

// Default attribute values applied when supplier files omit them
const (
	DefaultItemGroup     = "Mobiles"
	DefaultAppearance    = "Grade A"
	DefaultFunctionality = "Working"
	DefaultBoxed         = "Unboxed"
)

// DefaultProductName returns the placeholder name for an unnamed SKU
func DefaultProductName(sku string) string {
	return "Produit " + sku
}

// Attributes are the display attributes of a product variant
type Attributes struct {
	Appearance     string
	Functionality  string
	Boxed          string
	Color          string
	AdditionalInfo string
	CloudLock      string
	ItemGroup      string
}

// FillMissing copies every attribute that is empty on a from src.
// It returns the names of the attributes that were inherited.
func (a *Attributes) FillMissing(src Attributes) []string {
	var inherited []string
	fill := func(dst *string, v, name string) {
		if *dst == "" && v != "" {
			*dst = v
			inherited = append(inherited, name)
		}
	}
	fill(&a.Appearance, src.Appearance, "appearance")
	fill(&a.Functionality, src.Functionality, "functionality")
	fill(&a.Color, src.Color, "color")
	fill(&a.Boxed, src.Boxed, "boxed")
	return inherited
}

// WithDefaults returns a copy with catalog defaults for missing attributes
func (a Attributes) WithDefaults() Attributes {
	if a.Appearance == "" {
		a.Appearance = DefaultAppearance
	}
	if a.Functionality == "" {
		a.Functionality = DefaultFunctionality
	}
	if a.Boxed == "" {
		a.Boxed = DefaultBoxed
	}
	if a.ItemGroup == "" {
		a.ItemGroup = DefaultItemGroup
	}
	return a
}

// Product is a catalog entry identified by its SKU
type Product struct {
	shared.BaseEntity
	SKU           string
	Name          string
	Attributes    Attributes
	VATType       VATType
	SupplierPrice decimal.Decimal
	ResalePrice   decimal.Decimal
	Quantity      int
	IsActive      bool
}

// NewProduct creates an active product with the given stock
func NewProduct(sku, name string, quantity int) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Product quantity cannot be negative")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProductName(sku)
	}

	return &Product{
		BaseEntity:    shared.NewBaseEntity(),
		SKU:           sku,
		Name:          name,
		SupplierPrice: decimal.Zero,
		ResalePrice:   decimal.Zero,
		Quantity:      quantity,
		IsActive:      quantity > 0,
	}, nil
}

// SetPrices sets supplier and resale prices
func (p *Product) SetPrices(supplier, resale decimal.Decimal) error {
	if supplier.IsNegative() || resale.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	p.SupplierPrice = supplier
	p.ResalePrice = resale
	p.Touch()
	return nil
}

// RefreshStock replaces the on-hand quantity from a supplier file.
// Catalog refreshes drive the active flag from the new quantity.
func (p *Product) RefreshStock(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Product quantity cannot be negative")
	}
	p.Quantity = quantity
	p.IsActive = quantity > 0
	p.Touch()
	return nil
}

// HasStock reports whether at least qty units are on hand
func (p *Product) HasStock(qty int) bool {
	return p.Quantity >= qty
}

// Deactivate hides the product from the catalog
func (p *Product) Deactivate() {
	p.IsActive = false
	p.Touch()
}

// IsMarginal reports whether the product is sold under the margin scheme
func (p *Product) IsMarginal() bool {
	return p.VATType == VATMarginal
}

func (p *Product) String() string {
	return fmt.Sprintf("%s (%s)", p.SKU, p.Name)
}

// ProductFilter narrows catalog listings
type ProductFilter struct {
	shared.Filter
	ActiveOnly bool
	VATType    VATType
}

// StatsSnapshot summarizes a catalog refresh or listing
type StatsSnapshot struct {
	Total       int
	Marginal    int
	NonMarginal int
	Active      int
	OutOfStock  int
}

// Add accumulates one product into the snapshot
func (s *StatsSnapshot) Add(p *Product) {
	s.Total++
	if p.IsMarginal() {
		s.Marginal++
	} else {
		s.NonMarginal++
	}
	if p.IsActive {
		s.Active++
	}
	if p.Quantity == 0 {
		s.OutOfStock++
	}
}
