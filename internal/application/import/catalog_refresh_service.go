package importapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	csvimport "github.com/dbcb2b/backend/internal/infrastructure/import"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/dbcb2b/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogRefreshResult reports a supplier catalog refresh
type CatalogRefreshResult struct {
	TotalRows    int                  `json:"total_rows"`
	Imported     int                  `json:"imported"`
	Skipped      int                  `json:"skipped"`
	Duplicates   int                  `json:"duplicates"`
	Marginal     int                  `json:"marginal"`
	NonMarginal  int                  `json:"non_marginal"`
	InvalidPrice int                  `json:"invalid_price"`
	Active       int                  `json:"active"`
	OutOfStock   int                  `json:"out_of_stock"`
	Deactivated  int64                `json:"deactivated"`
	Conflicts    []string             `json:"conflicts,omitempty"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	ArchiveKey   string               `json:"archive_key,omitempty"`
}

// CatalogRefreshService replaces catalog stock and prices from a supplier file
type CatalogRefreshService struct {
	productRepo       catalog.ProductRepository
	pricing           strategy.PricingStrategy
	archiver          Archiver
	cache             CacheInvalidator
	deactivateMissing bool
}

// CatalogRefreshOption configures a CatalogRefreshService
type CatalogRefreshOption func(*CatalogRefreshService)

// WithCatalogArchiver archives every upload
func WithCatalogArchiver(a Archiver) CatalogRefreshOption {
	return func(s *CatalogRefreshService) { s.archiver = a }
}

// WithCatalogCacheInvalidator flushes cached products after a refresh
func WithCatalogCacheInvalidator(c CacheInvalidator) CatalogRefreshOption {
	return func(s *CatalogRefreshService) { s.cache = c }
}

// WithDeactivateMissing controls whether SKUs absent from the file are
// zeroed and hidden
func WithDeactivateMissing(enabled bool) CatalogRefreshOption {
	return func(s *CatalogRefreshService) { s.deactivateMissing = enabled }
}

// NewCatalogRefreshService creates a new CatalogRefreshService
func NewCatalogRefreshService(productRepo catalog.ProductRepository, pricing strategy.PricingStrategy, opts ...CatalogRefreshOption) *CatalogRefreshService {
	s := &CatalogRefreshService{
		productRepo:       productRepo,
		pricing:           pricing,
		deactivateMissing: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh upserts every row of the supplier file keyed on SKU. When a SKU
// appears more than once the last row wins.
func (s *CatalogRefreshService) Refresh(ctx context.Context, principal identity.Principal, up Upload) (*CatalogRefreshResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_refresh", "refresh")
	defer span.End()

	if err := principal.Authorize(identity.PermCatalogImport, nil); err != nil {
		return nil, err
	}

	res := &CatalogRefreshResult{ArchiveKey: ArchiveUpload(ctx, s.archiver, KindCatalog, up)}
	decoded, err := csvimport.Decode(up.Filename, up.Data, csvimport.DecodeOptions{
		MapOptions: csvimport.MapOptions{MaxErrors: maxRowErrors},
		Required:   []csvimport.Field{csvimport.FieldSKU, csvimport.FieldQuantity},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, FileError(err)
	}
	res.TotalRows = decoded.TotalRows
	res.Skipped = decoded.Skipped
	res.Errors = decoded.Errors.Errors()
	res.IsTruncated = decoded.Errors.IsTruncated()

	index := make(map[string]int, len(decoded.Rows))
	products := make([]*catalog.Product, 0, len(decoded.Rows))
	for _, row := range decoded.Rows {
		p, err := s.productFromRow(ctx, row)
		if err != nil {
			return nil, err
		}
		if i, ok := index[p.SKU]; ok {
			products[i] = p
			res.Duplicates++
			continue
		}
		index[p.SKU] = len(products)
		products = append(products, p)
	}

	var stats catalog.StatsSnapshot
	for _, p := range products {
		stats.Add(p)
		if !p.SupplierPrice.IsPositive() {
			res.InvalidPrice++
		}
	}
	res.Marginal = stats.Marginal
	res.NonMarginal = stats.NonMarginal
	res.Active = stats.Active
	res.OutOfStock = stats.OutOfStock

	log := logger.L(ctx).With(logger.ImportKind(KindCatalog), zap.String("filename", up.Filename))
	written, err := s.productRepo.UpsertBatch(ctx, products)
	if err != nil {
		log.Error("catalog refresh write failed", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to write catalog: %w", err)
	}
	res.Imported = len(products) - len(written.Conflicts)
	res.Conflicts = written.Conflicts
	for _, sku := range written.Conflicts {
		log.Warn("catalog row skipped on conflict", logger.SKU(sku))
	}

	if s.deactivateMissing && len(products) > 0 {
		keep := make([]string, len(products))
		for i, p := range products {
			keep[i] = p.SKU
		}
		n, err := s.productRepo.DeactivateExcept(ctx, keep)
		if err != nil {
			log.Error("failed to deactivate missing products", zap.Error(err))
			return nil, fmt.Errorf("failed to deactivate missing products: %w", err)
		}
		res.Deactivated = n
	}

	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}

	log.Info("catalog refreshed",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int64("deactivated", res.Deactivated),
		zap.Int("invalid_price", res.InvalidPrice),
	)
	telemetry.SetOK(span)
	return res, nil
}

func (s *CatalogRefreshService) productFromRow(ctx context.Context, row csvimport.ImportRow) (*catalog.Product, error) {
	p, err := catalog.NewProduct(row.SKU, row.Name, row.Quantity)
	if err != nil {
		return nil, err
	}
	p.VATType = catalog.ParseVATType(row.VATType).OrDefault()
	p.Attributes = catalog.Attributes{
		Appearance:     strings.TrimSpace(row.Appearance),
		Functionality:  strings.TrimSpace(row.Functionality),
		Boxed:          strings.TrimSpace(row.Boxed),
		Color:          strings.TrimSpace(row.Color),
		AdditionalInfo: strings.TrimSpace(row.AdditionalInfo),
		CloudLock:      strings.TrimSpace(row.CloudLock),
		ItemGroup:      strings.TrimSpace(row.ItemGroup),
	}.WithDefaults()

	supplier := decimal.Zero
	if row.HasPrice && row.UnitPrice.IsPositive() {
		supplier = row.UnitPrice
	}
	priced, err := s.pricing.CalculatePrice(ctx, strategy.PricingContext{
		SKU:           p.SKU,
		SupplierPrice: supplier,
		Marginal:      p.IsMarginal(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to price %s: %w", p.SKU, err)
	}
	if err := p.SetPrices(supplier, priced.ResalePrice); err != nil {
		return nil, err
	}
	return p, nil
}
