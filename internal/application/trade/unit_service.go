package trade

import (
	"context"

	importapp "github.com/dbcb2b/backend/internal/application/import"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/trade"
	csvimport "github.com/dbcb2b/backend/internal/infrastructure/import"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/dbcb2b/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnitService attaches serialized units to paid orders
type UnitService struct {
	orderRepo trade.OrderRepository
	unitRepo  trade.SerializedUnitRepository
	archiver  importapp.Archiver
}

// UnitServiceOption configures a UnitService
type UnitServiceOption func(*UnitService)

// WithUnitArchiver archives every unit upload
func WithUnitArchiver(a importapp.Archiver) UnitServiceOption {
	return func(s *UnitService) { s.archiver = a }
}

// NewUnitService creates a new UnitService
func NewUnitService(orderRepo trade.OrderRepository, unitRepo trade.SerializedUnitRepository, opts ...UnitServiceOption) *UnitService {
	s := &UnitService{orderRepo: orderRepo, unitRepo: unitRepo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportUnits attaches one unit per uploaded row and moves the order to
// shipping. The upload must cover every order line exactly.
func (s *UnitService) ImportUnits(ctx context.Context, principal identity.Principal, orderID uuid.UUID, up importapp.Upload) (*UnitImportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "serialized_unit", "import")
	defer span.End()

	if !principal.Can(identity.PermOrderUnitImport) {
		return nil, shared.ErrForbidden
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != trade.OrderStatusPendingPayment {
		return nil, order.MarkShipping()
	}

	count, err := s.unitRepo.CountByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, trade.ErrUnitsAlreadyAttached
	}

	archiveKey := importapp.ArchiveUpload(ctx, s.archiver, importapp.KindUnits, up)
	decoded, err := csvimport.Decode(up.Filename, up.Data, csvimport.DecodeOptions{
		MapOptions: csvimport.MapOptions{DefaultQuantity: 1, RequireIdentifier: true, MaxErrors: 100},
		Required:   []csvimport.Field{csvimport.FieldSKU, csvimport.FieldIdentifier, csvimport.FieldUnitPrice},
	})
	if err != nil {
		return nil, importapp.FileError(err)
	}

	lines := make([]trade.UnitLine, len(decoded.Rows))
	for i, r := range decoded.Rows {
		lines[i] = trade.UnitLine{
			SKU:            r.SKU,
			Identifier:     r.Identifier,
			Appearance:     r.Appearance,
			Functionality:  r.Functionality,
			Boxed:          r.Boxed,
			Color:          r.Color,
			CloudLock:      r.CloudLock,
			AdditionalInfo: r.AdditionalInfo,
			SupplierPrice:  r.UnitPrice,
		}
	}

	groups, err := trade.MatchUnits(order.Items, lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	units := trade.BuildUnits(order, groups)
	if err := order.MarkShipping(); err != nil {
		return nil, err
	}
	if err := s.unitRepo.AttachAndSave(ctx, order, units); err != nil {
		logger.L(ctx).Error("failed to attach serialized units", logger.OrderID(order.ID), zap.Error(err))
		return nil, err
	}

	logger.L(ctx).Info("serialized units attached", logger.OrderID(order.ID), zap.Int("units", len(units)))
	return &UnitImportResponse{
		Order:       ToOrderResponse(order),
		Attached:    len(units),
		SkippedRows: decoded.Skipped,
		ArchiveKey:  archiveKey,
	}, nil
}

// ListUnits returns the units attached to an order visible to the caller
func (s *UnitService) ListUnits(ctx context.Context, principal identity.Principal, orderID uuid.UUID) ([]SerializedUnitResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := principal.Authorize(identity.PermOrderReadOwn, order.OwnerID); err != nil {
		return nil, err
	}
	units, err := s.unitRepo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return ToSerializedUnitResponses(units), nil
}

// RemoveUnits deletes every unit of the order so they can be imported again.
// A shipping order goes back to pending_payment.
func (s *UnitService) RemoveUnits(ctx context.Context, principal identity.Principal, orderID uuid.UUID) (*UnitRemovalResponse, error) {
	if !principal.Can(identity.PermOrderUnitImport) {
		return nil, shared.ErrForbidden
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.ReopenForUnits(); err != nil {
		return nil, err
	}
	removed, err := s.unitRepo.DetachAndSave(ctx, order)
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("serialized units removed", logger.OrderID(order.ID), zap.Int64("removed", removed))
	return &UnitRemovalResponse{Order: ToOrderResponse(order), Removed: removed}, nil
}
