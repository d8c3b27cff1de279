package trade

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/trade"
	csvimport "github.com/dbcb2b/backend/internal/infrastructure/import"
	"github.com/google/uuid"
)

// Export types
const (
	ExportBySKU  = "sku"
	ExportByIMEI = "imei"
)

var (
	skuExportHeaders = []string{
		"SKU", "Product Name", "Quantity", "Offered Price", "VAT Type",
		"Appearance", "Functionality", "Color", "Boxed", "Additional Info",
	}
	imeiExportHeaders = []string{
		"SKU", "Id", "Product Name", "Item Identifier", "Appearance", "Functionality",
		"Boxed", "Color", "Cloud Lock", "Additional Info", "Quantity", "Price",
	}
	unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// ExportFile is an encoded order export
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService writes shipped orders back out as spreadsheets
type ExportService struct {
	orderRepo   trade.OrderRepository
	unitRepo    trade.SerializedUnitRepository
	productRepo catalog.ProductRepository
	now         func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(orderRepo trade.OrderRepository, unitRepo trade.SerializedUnitRepository, productRepo catalog.ProductRepository) *ExportService {
	return &ExportService{
		orderRepo:   orderRepo,
		unitRepo:    unitRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// Export encodes a shipping or completed order, one row per line for
// ExportBySKU or one row per serialized unit for ExportByIMEI
func (s *ExportService) Export(ctx context.Context, principal identity.Principal, orderID uuid.UUID, exportType, format string) (*ExportFile, error) {
	if exportType == "" {
		exportType = ExportBySKU
	}
	if exportType != ExportBySKU && exportType != ExportByIMEI {
		return nil, shared.NewDomainError("INVALID_EXPORT_TYPE", "Export type must be sku or imei")
	}
	f, err := csvimport.ParseFormat(format)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FORMAT", "Export format must be csv or xlsx")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := principal.Authorize(identity.PermOrderReadOwn, order.OwnerID); err != nil {
		return nil, err
	}
	if order.Status != trade.OrderStatusShipping && order.Status != trade.OrderStatusCompleted {
		return nil, shared.NewGuardViolation(shared.ErrInvalidState.Code, "Cannot export order",
			[]shared.Offender{{Key: "status", Reason: "current status " + string(order.Status) + ", requires shipping or completed"}})
	}

	var headers []string
	var rows [][]string
	if exportType == ExportByIMEI {
		headers = imeiExportHeaders
		rows, err = s.unitRows(ctx, order)
	} else {
		headers = skuExportHeaders
		rows, err = s.itemRows(ctx, order)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Nothing to export for this order")
	}

	data, err := csvimport.WriteTable(f, headers, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return &ExportFile{
		Filename:    s.filename(order, exportType, f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

func (s *ExportService) itemRows(ctx context.Context, order *trade.Order) ([][]string, error) {
	skus := make([]string, len(order.Items))
	for i, item := range order.Items {
		skus[i] = item.SKU
	}
	products, err := s.productRepo.FindBySKUs(ctx, skus)
	if err != nil {
		return nil, err
	}
	bySKU := make(map[string]*catalog.Product, len(products))
	for i := range products {
		bySKU[products[i].SKU] = &products[i]
	}

	rows := make([][]string, 0, len(order.Items))
	for _, item := range order.Items {
		attrs := catalog.Attributes{}.WithDefaults()
		vat := catalog.VATNonMarginal
		if p, ok := bySKU[item.SKU]; ok {
			attrs = p.Attributes
			vat = p.VATType.OrDefault()
		}
		rows = append(rows, []string{
			item.SKU,
			item.ProductName,
			fmt.Sprint(item.Quantity),
			item.UnitPrice.StringFixed(2),
			vat.Label(),
			attrs.Appearance,
			attrs.Functionality,
			attrs.Color,
			attrs.Boxed,
			attrs.AdditionalInfo,
		})
	}
	return rows, nil
}

func (s *ExportService) unitRows(ctx context.Context, order *trade.Order) ([][]string, error) {
	units, err := s.unitRepo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{
			u.SKU,
			u.ID.String(),
			u.ProductName,
			u.IMEI,
			u.Appearance,
			u.Functionality,
			u.Boxed,
			u.Color,
			u.CloudLock,
			u.AdditionalInfo,
			"1",
			u.ResalePrice.StringFixed(2),
		})
	}
	return rows, nil
}

// filename builds commande_<name>_<type>_<yyyy-mm-dd>.<ext>
func (s *ExportService) filename(order *trade.Order, exportType string, f csvimport.Format) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(order.Name, "_"), "_")
	if name == "" {
		name = order.ID.String()[:8]
	}
	return fmt.Sprintf("commande_%s_%s_%s.%s", name, exportType, s.now().Format("2006-01-02"), f)
}
