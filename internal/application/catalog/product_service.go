package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/dbcb2b/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ProductCache caches exact-SKU lookups. Get returns nil without error on a miss.
type ProductCache interface {
	Get(ctx context.Context, sku string) (*catalog.Product, error)
	Set(ctx context.Context, product *catalog.Product) error
	Invalidate(ctx context.Context, skus ...string) error
	InvalidateAll(ctx context.Context) error
}

// ProductService serves catalog reads: exact SKU lookup, listing and
// neighbor resolution
type ProductService struct {
	productRepo catalog.ProductRepository
	cache       ProductCache
	resolver    *catalog.NeighborResolver
}

// ProductServiceOption configures a ProductService
type ProductServiceOption func(*ProductService)

// WithProductCache enables the exact-SKU cache
func WithProductCache(cache ProductCache) ProductServiceOption {
	return func(s *ProductService) {
		s.cache = cache
	}
}

// WithNeighborStrategies replaces the default ranked neighbor strategies
func WithNeighborStrategies(strategies []catalog.NeighborStrategy) ProductServiceOption {
	return func(s *ProductService) {
		s.resolver = catalog.NewNeighborResolver(s.productRepo, strategies)
	}
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, opts ...ProductServiceOption) *ProductService {
	s := &ProductService{
		productRepo: productRepo,
		resolver:    catalog.NewNeighborResolver(productRepo, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver exposes the neighbor resolver shared with the import classifier
func (s *ProductService) Resolver() *catalog.NeighborResolver {
	return s.resolver
}

// FindProduct returns the product for sku, going through the cache when
// enabled. Cache failures are logged and fall through to the store.
func (s *ProductService) FindProduct(ctx context.Context, sku string) (*catalog.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU is required")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, sku)
		if err != nil {
			logger.L(ctx).Warn("product cache read failed", logger.SKU(sku), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product); err != nil {
			logger.L(ctx).Warn("product cache write failed", logger.SKU(sku), zap.Error(err))
		}
	}
	return product, nil
}

// GetBySKU returns the catalog view of a product
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.FindProduct(ctx, sku)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List lists products with filtering and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "sku"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	vat := catalog.ParseVATType(filter.VATType)
	if filter.VATType != "" && vat == catalog.VATUnset {
		return nil, 0, shared.NewDomainError("INVALID_VAT_TYPE", "Unknown VAT type: "+filter.VATType)
	}

	products, total, err := s.productRepo.FindAll(ctx, catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		},
		ActiveOnly: filter.ActiveOnly,
		VATType:    vat,
	})
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// ResolveNeighbor runs the ranked neighbor strategies for a product the
// catalog does not know
func (s *ProductService) ResolveNeighbor(ctx context.Context, req NeighborRequest) (*NeighborResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "resolve_neighbor")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name is required to resolve a neighbor")
	}
	match, err := s.resolver.Resolve(ctx, catalog.NeighborProbe{
		Name:          req.Name,
		Appearance:    strings.TrimSpace(req.Appearance),
		Functionality: strings.TrimSpace(req.Functionality),
		VATType:       catalog.ParseVATType(req.VATType),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if match == nil {
		return &NeighborResponse{Matched: false}, nil
	}
	telemetry.SetAttribute(span, "neighbor.strategy", match.Strategy)
	product := ToProductResponse(match.Product)
	return &NeighborResponse{Matched: true, Strategy: match.Strategy, Product: &product}, nil
}

// Invalidate drops cached entries after a stock or catalog write. It never
// fails the caller.
func (s *ProductService) Invalidate(ctx context.Context, skus ...string) {
	if s.cache == nil || len(skus) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, skus...); err != nil {
		logger.L(ctx).Warn("product cache invalidation failed", zap.Strings("skus", skus), zap.Error(err))
	}
}

// InvalidateAll drops every cached product
func (s *ProductService) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.L(ctx).Warn("product cache flush failed", zap.Error(err))
	}
}

// IsNotFound reports whether err means the SKU is unknown
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
