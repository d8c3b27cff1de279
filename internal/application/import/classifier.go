package importapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	"github.com/dbcb2b/backend/internal/domain/trade"
	csvimport "github.com/dbcb2b/backend/internal/infrastructure/import"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Bucket is the classification of an order import row
type Bucket string

const (
	BucketSufficient    Bucket = "sufficient"
	BucketNeedsRestock  Bucket = "needs_restock"
	BucketNeedsCreation Bucket = "needs_creation"
)

// ClassifiedRow is one SKU of an order import with its resolved price and
// attributes
type ClassifiedRow struct {
	Line          int                `json:"line"`
	SKU           string             `json:"sku"`
	Name          string             `json:"product_name"`
	Quantity      int                `json:"quantity"`
	Bucket        Bucket             `json:"bucket"`
	CurrentStock  int                `json:"current_stock"`
	UnitPrice     decimal.Decimal    `json:"unit_price"`
	OfferedPrice  *decimal.Decimal   `json:"offered_price,omitempty"`
	VATType       catalog.VATType    `json:"vat_type"`
	Attributes    catalog.Attributes `json:"-"`
	Neighbor      string             `json:"neighbor_sku,omitempty"`
	Strategy      string             `json:"neighbor_strategy,omitempty"`
	Inherited     []string           `json:"inherited,omitempty"`
	PricedByRule  bool               `json:"priced_by_rule,omitempty"`
	MergedLines   []int              `json:"merged_lines,omitempty"`
	existing      *catalog.Product
	supplierPrice decimal.Decimal
}

// Classification is the outcome of classifying an order import
type Classification struct {
	Sufficient    []ClassifiedRow `json:"sufficient"`
	NeedsRestock  []ClassifiedRow `json:"needs_restock"`
	NeedsCreation []ClassifiedRow `json:"needs_creation"`
	// Draft holds every row, across buckets, in file order
	Draft       []trade.ItemLine `json:"-"`
	TotalItems  int              `json:"total_items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

// Rows returns every classified row grouped by bucket
func (c *Classification) Rows() []ClassifiedRow {
	out := make([]ClassifiedRow, 0, len(c.Sufficient)+len(c.NeedsRestock)+len(c.NeedsCreation))
	out = append(out, c.Sufficient...)
	out = append(out, c.NeedsRestock...)
	out = append(out, c.NeedsCreation...)
	return out
}

// Classifier buckets order import rows against the catalog
type Classifier struct {
	products catalog.ProductRepository
	resolver *catalog.NeighborResolver
	pricing  strategy.PricingStrategy
}

// NewClassifier creates a Classifier. A nil resolver uses the default ranked
// neighbor strategies.
func NewClassifier(products catalog.ProductRepository, resolver *catalog.NeighborResolver, pricing strategy.PricingStrategy) *Classifier {
	if resolver == nil {
		resolver = catalog.NewNeighborResolver(products, nil)
	}
	return &Classifier{products: products, resolver: resolver, pricing: pricing}
}

// Classify resolves every row. Rows sharing a SKU are merged: quantities are
// summed and the first row's name, attributes and price are kept.
func (c *Classifier) Classify(ctx context.Context, rows []csvimport.ImportRow) (*Classification, error) {
	merged := mergeRows(rows)

	skus := make([]string, len(merged))
	for i, r := range merged {
		skus[i] = r.row.SKU
	}
	found, err := c.products.FindBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to look up catalog: %w", err)
	}
	known := make(map[string]*catalog.Product, len(found))
	for i := range found {
		known[found[i].SKU] = &found[i]
	}

	res := &Classification{TotalAmount: decimal.Zero}
	neighbors := make(map[string]*catalog.NeighborMatch)
	for _, m := range merged {
		var row ClassifiedRow
		if p, ok := known[m.row.SKU]; ok {
			row = classifyExisting(m, p)
		} else {
			row, err = c.classifyUnknown(ctx, m, neighbors)
			if err != nil {
				return nil, err
			}
		}

		switch row.Bucket {
		case BucketSufficient:
			res.Sufficient = append(res.Sufficient, row)
		case BucketNeedsRestock:
			res.NeedsRestock = append(res.NeedsRestock, row)
		default:
			res.NeedsCreation = append(res.NeedsCreation, row)
		}
		res.Draft = append(res.Draft, trade.ItemLine{
			SKU:         row.SKU,
			ProductName: row.Name,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
		})
		res.TotalItems += row.Quantity
		res.TotalAmount = res.TotalAmount.Add(lineTotal(row.UnitPrice, row.Quantity))
	}
	return res, nil
}

func classifyExisting(m mergedRow, p *catalog.Product) ClassifiedRow {
	row := newClassifiedRow(m)
	row.Name = p.Name
	row.CurrentStock = p.Quantity
	row.UnitPrice = p.ResalePrice
	row.VATType = p.VATType
	row.Attributes = p.Attributes
	row.existing = p
	if p.HasStock(m.row.Quantity) {
		row.Bucket = BucketSufficient
	} else {
		row.Bucket = BucketNeedsRestock
	}
	return row
}

func (c *Classifier) classifyUnknown(ctx context.Context, m mergedRow, cache map[string]*catalog.NeighborMatch) (ClassifiedRow, error) {
	row := newClassifiedRow(m)
	row.Bucket = BucketNeedsCreation
	row.VATType = catalog.ParseVATType(m.row.VATType)
	row.Attributes = catalog.Attributes{
		Appearance:     strings.TrimSpace(m.row.Appearance),
		Functionality:  strings.TrimSpace(m.row.Functionality),
		Boxed:          strings.TrimSpace(m.row.Boxed),
		Color:          strings.TrimSpace(m.row.Color),
		AdditionalInfo: strings.TrimSpace(m.row.AdditionalInfo),
		CloudLock:      strings.TrimSpace(m.row.CloudLock),
		ItemGroup:      strings.TrimSpace(m.row.ItemGroup),
	}

	probe := catalog.NeighborProbe{
		Name:          row.Name,
		Appearance:    row.Attributes.Appearance,
		Functionality: row.Attributes.Functionality,
		VATType:       row.VATType,
	}
	match, seen := cache[probe.Key()]
	if !seen {
		var err error
		match, err = c.resolver.Resolve(ctx, probe)
		if err != nil {
			return row, fmt.Errorf("failed to resolve neighbor for %s: %w", row.SKU, err)
		}
		cache[probe.Key()] = match
	}

	if match != nil {
		row.UnitPrice = match.Product.ResalePrice
		row.Neighbor = match.Product.SKU
		row.Strategy = match.Strategy
		row.Inherited = row.Attributes.FillMissing(match.Product.Attributes)
		if row.VATType == catalog.VATUnset {
			row.VATType = match.Product.VATType
		}
		logger.L(ctx).Debug("neighbor resolved",
			logger.SKU(row.SKU),
			zap.String("neighbor", match.Product.SKU),
			zap.String("strategy", match.Strategy),
		)
	} else {
		row.VATType = row.VATType.OrDefault()
		price, err := c.pricing.CalculatePrice(ctx, strategy.PricingContext{
			SKU:           row.SKU,
			SupplierPrice: row.supplierPrice,
			Marginal:      row.VATType == catalog.VATMarginal,
		})
		if err != nil {
			return row, fmt.Errorf("failed to price %s: %w", row.SKU, err)
		}
		row.UnitPrice = price.ResalePrice
		row.PricedByRule = true
	}
	row.VATType = row.VATType.OrDefault()
	row.Attributes = row.Attributes.WithDefaults()
	return row, nil
}

func newClassifiedRow(m mergedRow) ClassifiedRow {
	row := ClassifiedRow{
		Line:          m.row.Line,
		SKU:           m.row.SKU,
		Name:          strings.TrimSpace(m.row.Name),
		Quantity:      m.row.Quantity,
		MergedLines:   m.mergedLines,
		supplierPrice: decimal.Zero,
	}
	if row.Name == "" {
		row.Name = catalog.DefaultProductName(row.SKU)
	}
	if m.row.HasPrice {
		offered := m.row.UnitPrice
		row.OfferedPrice = &offered
		if offered.IsPositive() {
			row.supplierPrice = offered
		}
	}
	return row
}

// restocked returns the existing product with its stock replaced by the
// requested quantity. Name, attributes and prices are kept.
func (r ClassifiedRow) restocked() (*catalog.Product, error) {
	p := *r.existing
	if err := p.RefreshStock(r.Quantity); err != nil {
		return nil, err
	}
	return &p, nil
}

// created builds the catalog entry for an unknown SKU
func (r ClassifiedRow) created() (*catalog.Product, error) {
	p, err := catalog.NewProduct(r.SKU, r.Name, r.Quantity)
	if err != nil {
		return nil, err
	}
	p.Attributes = r.Attributes
	p.VATType = r.VATType
	if err := p.SetPrices(r.supplierPrice, r.UnitPrice); err != nil {
		return nil, err
	}
	return p, nil
}

type mergedRow struct {
	row         csvimport.ImportRow
	mergedLines []int
}

func mergeRows(rows []csvimport.ImportRow) []mergedRow {
	index := make(map[string]int, len(rows))
	out := make([]mergedRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.SKU]; ok {
			out[i].row.Quantity += r.Quantity
			out[i].mergedLines = append(out[i].mergedLines, r.Line)
			continue
		}
		index[r.SKU] = len(out)
		out = append(out, mergedRow{row: r})
	}
	return out
}

// lineTotal is unit price times quantity
func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
