package trade

import (
	"context"
	"errors"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/dbcb2b/backend/internal/domain/identity"
	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	"github.com/dbcb2b/backend/internal/domain/trade"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/dbcb2b/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockInvalidator drops cached catalog entries after stock writes
type StockInvalidator interface {
	Invalidate(ctx context.Context, skus ...string)
}

// OrderPolicy holds the configurable business rules of the order lifecycle
type OrderPolicy struct {
	// RestoreStockOnCancel gives the stock of a validated order back when it
	// is cancelled
	RestoreStockOnCancel bool
	// AutoShippingCost prices shipping from the tier grid when completing
	// without an explicit surcharge
	AutoShippingCost bool
	// VATLabel is stamped on new drafts
	VATLabel string
}

// OrderService drives the order state machine and keeps stock consistent
// with every transition
type OrderService struct {
	orderRepo   trade.OrderRepository
	productRepo catalog.ProductRepository
	stock       inventory.StockReader
	shipping    strategy.ShippingStrategy
	cache       StockInvalidator
	policy      OrderPolicy
}

// OrderServiceOption configures an OrderService
type OrderServiceOption func(*OrderService)

// WithShippingStrategy sets the strategy used to price shipping
func WithShippingStrategy(s strategy.ShippingStrategy) OrderServiceOption {
	return func(svc *OrderService) { svc.shipping = s }
}

// WithStockInvalidator invalidates cached products after stock writes
func WithStockInvalidator(c StockInvalidator) OrderServiceOption {
	return func(svc *OrderService) { svc.cache = c }
}

// WithOrderPolicy overrides the default policy
func WithOrderPolicy(p OrderPolicy) OrderServiceOption {
	return func(svc *OrderService) {
		if p.VATLabel == "" {
			p.VATLabel = trade.DefaultVATLabel
		}
		svc.policy = p
	}
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	productRepo catalog.ProductRepository,
	stock inventory.StockReader,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stock:       stock,
		policy:      OrderPolicy{VATLabel: trade.DefaultVATLabel},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft creates a draft owned by the caller. A client holds at most
// one draft at a time.
func (s *OrderService) CreateDraft(ctx context.Context, principal identity.Principal, req CreateDraftRequest) (*OrderResponse, error) {
	if !principal.Can(identity.PermOrderCreate) {
		return nil, shared.ErrForbidden
	}

	if !principal.IsAdmin() {
		existing, err := s.orderRepo.FindDraftByOwner(ctx, principal.UserID)
		switch {
		case err == nil:
			return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code,
				"A draft order already exists: "+existing.ID.String())
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}

	owner := principal.UserID
	order, err := trade.NewDraftOrder(req.Name, &owner)
	if err != nil {
		return nil, err
	}
	order.VATLabel = s.policy.VATLabel

	if len(req.Items) > 0 {
		lines, err := s.resolveLines(ctx, req.Items, nil)
		if err != nil {
			return nil, err
		}
		if err := order.ReplaceItems(lines); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("draft order created", logger.OrderID(order.ID), zap.Int("items", order.TotalItems))
	return ToOrderResponse(order), nil
}

// ReplaceItems swaps every line of a draft. Prices come from the catalog.
func (s *OrderService) ReplaceItems(ctx context.Context, principal identity.Principal, id uuid.UUID, req ReplaceItemsRequest) (*OrderResponse, error) {
	order, err := s.load(ctx, principal, id, identity.PermOrderUpdateOwn)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, req.Items, nil)
	if err != nil {
		return nil, err
	}
	if err := order.ReplaceItems(lines); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	return ToOrderResponse(order), nil
}

// Get returns an order visible to the caller
func (s *OrderService) Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.load(ctx, principal, id, identity.PermOrderReadOwn)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(order), nil
}

// List lists the orders visible to the caller. Clients only see their own.
func (s *OrderService) List(ctx context.Context, principal identity.Principal, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
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
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := trade.OrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		},
	}
	if filter.Status != "" {
		status := trade.OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+filter.Status)
		}
		domainFilter.Status = status
	}

	switch {
	case principal.Can(identity.PermOrderReadAll):
	case principal.Can(identity.PermOrderReadOwn):
		owner := principal.UserID
		domainFilter.OwnerID = &owner
	default:
		return nil, 0, shared.ErrForbidden
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderListItemResponse(&orders[i])
	}
	return items, total, nil
}

// Validate moves a draft to pending_payment and takes its items out of
// stock. Every SKU is checked before anything is written; a single shortfall
// fails the whole validation.
func (s *OrderService) Validate(ctx context.Context, principal identity.Principal, id uuid.UUID) (*StockReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "validate")
	defer span.End()

	if !principal.Can(identity.PermOrderValidate) {
		return nil, shared.ErrForbidden
	}
	order, err := s.load(ctx, principal, id, identity.PermOrderUpdateOwn)
	if err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	plan := inventory.Diff(inventory.Snapshot{}, order.Snapshot())
	res, err := s.commit(ctx, order, plan)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "order.items", order.TotalItems)
	logger.L(ctx).Info("order validated",
		logger.OrderID(order.ID),
		zap.Int("removed", res.Removed()),
	)
	return newStockReport(order, res), nil
}

// ReviseItems replaces the lines of a pending_payment order. Only the delta
// between the committed lines and the new ones touches stock. Existing lines
// keep their unit price; new SKUs are priced from the catalog.
func (s *OrderService) ReviseItems(ctx context.Context, principal identity.Principal, id uuid.UUID, req ReviseItemsRequest) (*StockReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "revise_items")
	defer span.End()

	order, err := s.load(ctx, principal, id, identity.PermOrderUpdateOwn)
	if err != nil {
		return nil, err
	}
	if order.Status != trade.OrderStatusPendingPayment {
		return nil, order.ReviseItems(nil)
	}

	previous := order.Snapshot()
	lines, err := s.resolveLines(ctx, req.Items, order)
	if err != nil {
		return nil, err
	}
	if err := order.ReviseItems(lines); err != nil {
		return nil, err
	}

	plan := inventory.Diff(previous, order.Snapshot())
	if plan.IsEmpty() {
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return nil, err
		}
		return newStockReport(order, nil), nil
	}

	res, err := s.commit(ctx, order, plan)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("validated order revised",
		logger.OrderID(order.ID),
		zap.Int("movements", len(plan.Movements)),
		zap.Strings("skipped", res.Skipped),
	)
	return newStockReport(order, res), nil
}

// Cancel cancels a non-terminal order. Stock is only given back when the
// restore policy is enabled and the order had taken stock.
func (s *OrderService) Cancel(ctx context.Context, principal identity.Principal, id uuid.UUID) (*StockReportResponse, error) {
	order, err := s.load(ctx, principal, id, identity.PermOrderUpdateOwn)
	if err != nil {
		return nil, err
	}
	holds := order.HoldsStock()
	snapshot := order.Snapshot()
	if err := order.Cancel(); err != nil {
		return nil, err
	}

	if !s.policy.RestoreStockOnCancel || !holds {
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return nil, err
		}
		logger.L(ctx).Info("order cancelled", logger.OrderID(order.ID), zap.Bool("stock_restored", false))
		return newStockReport(order, nil), nil
	}

	plan := inventory.RestorePlan(snapshot)
	res, err := s.orderRepo.SaveWithStock(ctx, order, plan)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, plan.SKUs())
	logger.L(ctx).Info("order cancelled", logger.OrderID(order.ID), zap.Bool("stock_restored", true))
	return newStockReport(order, res), nil
}

// Complete records the shipment of an order. An explicit surcharge wins over
// the tier grid; free shipping forces zero.
func (s *OrderService) Complete(ctx context.Context, principal identity.Principal, id uuid.UUID, req CompleteOrderRequest) (*OrderResponse, error) {
	if !principal.Can(identity.PermOrderShip) {
		return nil, shared.ErrForbidden
	}
	order, err := s.load(ctx, principal, id, identity.PermOrderUpdateOwn)
	if err != nil {
		return nil, err
	}

	surcharge := decimal.Zero
	switch {
	case req.ShippingCost != nil:
		surcharge = *req.ShippingCost
	case s.policy.AutoShippingCost && s.shipping != nil:
		surcharge = s.shipping.ShippingCost(order.TotalItems)
	}

	if err := order.Complete(req.TrackingNumber, surcharge); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("order completed",
		logger.OrderID(order.ID),
		zap.String("tracking_number", order.TrackingNumber()),
		zap.String("shipping_cost", order.ShippingCost.String()),
	)
	return ToOrderResponse(order), nil
}

// SetFreeShipping toggles free shipping on a non-terminal order
func (s *OrderService) SetFreeShipping(ctx context.Context, principal identity.Principal, id uuid.UUID, req FreeShippingRequest) (*OrderResponse, error) {
	if !principal.Can(identity.PermOrderShip) {
		return nil, shared.ErrForbidden
	}
	order, err := s.load(ctx, principal, id, identity.PermOrderUpdateOwn)
	if err != nil {
		return nil, err
	}
	if err := order.SetFreeShipping(req.FreeShipping); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	return ToOrderResponse(order), nil
}

// Delete hard-deletes a draft
func (s *OrderService) Delete(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
	order, err := s.load(ctx, principal, id, identity.PermOrderDeleteOwn)
	if err != nil {
		return err
	}
	if err := order.EnsureDeletable(); err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, order.ID); err != nil {
		return err
	}
	logger.L(ctx).Info("draft order deleted", logger.OrderID(order.ID))
	return nil
}

// ShippingCost prices the shipping of totalItems items
func (s *OrderService) ShippingCost(totalItems int) (*ShippingCostResponse, error) {
	if totalItems < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Item count cannot be negative")
	}
	cost := decimal.Zero
	if s.shipping != nil {
		cost = s.shipping.ShippingCost(totalItems)
	}
	return &ShippingCostResponse{TotalItems: totalItems, ShippingCost: cost}, nil
}

// load fetches an order and checks perm against its owner
func (s *OrderService) load(ctx context.Context, principal identity.Principal, id uuid.UUID, perm identity.Permission) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := principal.Authorize(perm, order.OwnerID); err != nil {
		return nil, err
	}
	return order, nil
}

// commit checks the plan's removals against current stock, then applies the
// plan and saves the order in one transaction. The store re-checks every
// removal under lock, so a concurrent validation cannot oversell.
func (s *OrderService) commit(ctx context.Context, order *trade.Order, plan inventory.Plan) (*inventory.ApplyResult, error) {
	if removals := plan.Removals(); len(removals) > 0 {
		skus := make([]string, len(removals))
		for i, m := range removals {
			skus[i] = m.SKU
		}
		levels, err := s.stock.Levels(ctx, skus)
		if err != nil {
			return nil, err
		}
		if err := plan.CheckSufficiency(levels); err != nil {
			return nil, err
		}
	}

	res, err := s.orderRepo.SaveWithStock(ctx, order, plan)
	if err != nil {
		var gv *shared.GuardViolation
		if !errors.As(err, &gv) {
			logger.L(ctx).Error("failed to apply stock plan",
				logger.OrderID(order.ID),
				zap.Strings("skus", plan.SKUs()),
				zap.Error(err),
			)
		}
		return nil, err
	}
	for _, sku := range res.Skipped {
		logger.L(ctx).Warn("add-back skipped for unknown sku", logger.OrderID(order.ID), logger.SKU(sku))
	}
	s.invalidate(ctx, plan.SKUs())
	return res, nil
}

// resolveLines prices request lines. A line already on current keeps its
// unit price; otherwise the catalog resale price applies, zero when the SKU
// is unknown.
func (s *OrderService) resolveLines(ctx context.Context, items []ItemRequest, current *trade.Order) ([]trade.ItemLine, error) {
	skus := make([]string, 0, len(items))
	for _, it := range items {
		skus = append(skus, strings.TrimSpace(it.SKU))
	}

	products, err := s.productRepo.FindBySKUs(ctx, skus)
	if err != nil {
		return nil, err
	}
	bySKU := make(map[string]*catalog.Product, len(products))
	for i := range products {
		bySKU[products[i].SKU] = &products[i]
	}

	lines := make([]trade.ItemLine, 0, len(items))
	for i, it := range items {
		line := trade.ItemLine{SKU: skus[i], Quantity: it.Quantity, UnitPrice: decimal.Zero}
		if p, ok := bySKU[line.SKU]; ok {
			line.ProductName = p.Name
			line.UnitPrice = p.ResalePrice
		}
		if current != nil {
			if existing := current.Item(line.SKU); existing != nil {
				line.UnitPrice = existing.UnitPrice
				if existing.ProductName != "" {
					line.ProductName = existing.ProductName
				}
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *OrderService) invalidate(ctx context.Context, skus []string) {
	if s.cache != nil && len(skus) > 0 {
		s.cache.Invalidate(ctx, skus...)
	}
}
