package importapp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/trade"
	csvimport "github.com/dbcb2b/backend/internal/infrastructure/import"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/dbcb2b/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultImportCustomerRef marks drafts created from an order import
const DefaultImportCustomerRef = "IMPORT-AUTO"

// maxRowErrors caps the row errors returned to callers
const maxRowErrors = 100

// OrderImportPreview is the classification of an uploaded order file
type OrderImportPreview struct {
	*Classification
	TotalRows   int                  `json:"total_rows"`
	SkippedRows int                  `json:"skipped_rows"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated bool                 `json:"is_truncated,omitempty"`
	ArchiveKey  string               `json:"archive_key,omitempty"`
}

// OrderImportResult is the outcome of confirming an order import
type OrderImportResult struct {
	OrderImportPreview
	OrderID   uuid.UUID `json:"order_id"`
	Created   int       `json:"created"`
	Restocked int       `json:"restocked"`
	// Conflicts are creations skipped because a concurrent import wrote the
	// SKU first
	Conflicts []string `json:"conflicts,omitempty"`
}

// OrderImportService turns a client or supplier order spreadsheet into a
// draft order, creating and restocking catalog entries on confirmation
type OrderImportService struct {
	classifier  *Classifier
	productRepo catalog.ProductRepository
	orderRepo   trade.OrderRepository
	archiver    Archiver
	cache       CacheInvalidator
	customerRef string
	vatLabel    string
}

// OrderImportOption configures an OrderImportService
type OrderImportOption func(*OrderImportService)

// WithOrderArchiver archives every upload
func WithOrderArchiver(a Archiver) OrderImportOption {
	return func(s *OrderImportService) { s.archiver = a }
}

// WithOrderCacheInvalidator invalidates cached products after writes
func WithOrderCacheInvalidator(c CacheInvalidator) OrderImportOption {
	return func(s *OrderImportService) { s.cache = c }
}

// WithDraftLabels sets the customer reference and VAT label of imported drafts
func WithDraftLabels(customerRef, vatLabel string) OrderImportOption {
	return func(s *OrderImportService) {
		if customerRef != "" {
			s.customerRef = customerRef
		}
		if vatLabel != "" {
			s.vatLabel = vatLabel
		}
	}
}

// NewOrderImportService creates a new OrderImportService
func NewOrderImportService(
	classifier *Classifier,
	productRepo catalog.ProductRepository,
	orderRepo trade.OrderRepository,
	opts ...OrderImportOption,
) *OrderImportService {
	s := &OrderImportService{
		classifier:  classifier,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		customerRef: DefaultImportCustomerRef,
		vatLabel:    trade.DefaultVATLabel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview classifies the upload without writing anything
func (s *OrderImportService) Preview(ctx context.Context, principal identity.Principal, up Upload) (*OrderImportPreview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_import", "preview")
	defer span.End()

	if err := principal.Authorize(identity.PermCatalogImport, nil); err != nil {
		return nil, err
	}
	preview, err := s.classify(ctx, up)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return preview, nil
}

// Confirm re-classifies the upload, writes creations and restocks, then
// creates a draft holding every row at its resolved price
func (s *OrderImportService) Confirm(ctx context.Context, principal identity.Principal, up Upload, orderName string) (*OrderImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_import", "confirm")
	defer span.End()

	if err := principal.Authorize(identity.PermCatalogImport, nil); err != nil {
		return nil, err
	}
	preview, err := s.classify(ctx, up)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(preview.Draft) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "The file contains no importable rows")
	}

	res := &OrderImportResult{OrderImportPreview: *preview}
	log := logger.L(ctx).With(logger.ImportKind(KindOrders), zap.String("filename", up.Filename))

	creations := make([]*catalog.Product, 0, len(preview.NeedsCreation))
	for _, row := range preview.NeedsCreation {
		p, err := row.created()
		if err != nil {
			return nil, err
		}
		creations = append(creations, p)
	}
	if len(creations) > 0 {
		written, err := s.productRepo.CreateMissing(ctx, creations)
		if err != nil {
			log.Error("failed to create products", zap.Error(err))
			return nil, fmt.Errorf("failed to create products: %w", err)
		}
		res.Created = written.Written
		res.Conflicts = append(res.Conflicts, written.Conflicts...)
		for _, sku := range written.Conflicts {
			log.Warn("product created concurrently, row skipped", logger.SKU(sku))
		}
		if written.UsedFallback {
			log.Info("batch creation fell back to per-row inserts", zap.Int("conflicts", len(written.Conflicts)))
		}
	}

	restocks := make([]*catalog.Product, 0, len(preview.NeedsRestock))
	for _, row := range preview.NeedsRestock {
		p, err := row.restocked()
		if err != nil {
			return nil, err
		}
		restocks = append(restocks, p)
	}
	if len(restocks) > 0 {
		written, err := s.productRepo.UpsertBatch(ctx, restocks)
		if err != nil {
			log.Error("failed to restock products", zap.Error(err))
			return nil, fmt.Errorf("failed to restock products: %w", err)
		}
		res.Restocked = written.Written
		for _, sku := range written.Conflicts {
			log.Warn("restock conflict, row skipped", logger.SKU(sku))
		}
	}

	if s.cache != nil {
		skus := make([]string, 0, len(restocks)+len(creations))
		for _, p := range restocks {
			skus = append(skus, p.SKU)
		}
		for _, p := range creations {
			skus = append(skus, p.SKU)
		}
		s.cache.Invalidate(ctx, skus...)
	}

	if strings.TrimSpace(orderName) == "" {
		orderName = "Import " + strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename))
	}
	owner := principal.UserID
	order, err := trade.NewDraftOrder(orderName, &owner)
	if err != nil {
		return nil, err
	}
	order.CustomerRef = s.customerRef
	order.VATLabel = s.vatLabel
	if err := order.ReplaceItems(preview.Draft); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		log.Error("failed to save imported draft", logger.OrderID(order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	res.OrderID = order.ID

	log.Info("order import confirmed",
		logger.OrderID(order.ID),
		zap.Int("sufficient", len(preview.Sufficient)),
		zap.Int("restocked", res.Restocked),
		zap.Int("created", res.Created),
		zap.Int("conflicts", len(res.Conflicts)),
	)
	return res, nil
}

func (s *OrderImportService) classify(ctx context.Context, up Upload) (*OrderImportPreview, error) {
	archiveKey := ArchiveUpload(ctx, s.archiver, KindOrders, up)

	decoded, err := csvimport.Decode(up.Filename, up.Data, csvimport.DecodeOptions{
		MapOptions: csvimport.MapOptions{MaxErrors: maxRowErrors},
		Required:   []csvimport.Field{csvimport.FieldSKU, csvimport.FieldQuantity},
	})
	if err != nil {
		return nil, FileError(err)
	}

	classification, err := s.classifier.Classify(ctx, decoded.Rows)
	if err != nil {
		logger.L(ctx).Error("order import classification failed", zap.Error(err))
		return nil, err
	}
	return &OrderImportPreview{
		Classification: classification,
		TotalRows:      decoded.TotalRows,
		SkippedRows:    decoded.Skipped,
		Errors:         decoded.Errors.Errors(),
		IsTruncated:    decoded.Errors.IsTruncated(),
		ArchiveKey:     archiveKey,
	}, nil
}

// FileError maps file-level read failures to invalid input. Guard
// violations pass through untouched.
func FileError(err error) error {
	var gv *shared.GuardViolation
	if errors.As(err, &gv) {
		return err
	}
	return shared.NewDomainError("INVALID_FILE", err.Error())
}
