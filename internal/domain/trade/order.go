package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultVATLabel is the VAT regime printed on orders of second-hand goods
const DefaultVATLabel = "Bien d'occasion - TVA calculée sur la marge"

// TrackingPrefix prefixes carrier tracking numbers stored in the customer reference
const TrackingPrefix = "TRACKING:"

// OrderItem is one SKU line of an order
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	SKU         string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// ItemLine is caller input for an order line. Totals are always derived.
type ItemLine struct {
	SKU         string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func (l ItemLine) validate() error {
	if strings.TrimSpace(l.SKU) == "" {
		return shared.NewDomainError("INVALID_SKU", "Item SKU cannot be empty")
	}
	if l.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Quantity for %s must be positive", l.SKU))
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Unit price for %s cannot be negative", l.SKU))
	}
	return nil
}

// Order is the aggregate root of the ordering lifecycle
type Order struct {
	shared.BaseAggregateRoot
	Name         string
	Status       OrderStatus
	OwnerID      *uuid.UUID
	Items        []OrderItem
	TotalAmount  decimal.Decimal
	TotalItems   int
	ShippingCost decimal.Decimal
	FreeShipping bool
	CustomerRef  string
	VATLabel     string
}

// NewDraftOrder creates an empty draft. owner is nil for operator imports.
func NewDraftOrder(name string, owner *uuid.UUID) (*Order, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Commande " + time.Now().Format("2006-01-02 15:04")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Order name cannot exceed 200 characters")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Status:            OrderStatusDraft,
		OwnerID:           owner,
		Items:             make([]OrderItem, 0),
		TotalAmount:       decimal.Zero,
		ShippingCost:      decimal.Zero,
		VATLabel:          DefaultVATLabel,
	}, nil
}

// StatusLabel returns the label derived from the current status
func (o *Order) StatusLabel() StatusLabel {
	return o.Status.Label()
}

// IsOwnedBy reports whether the order belongs to the given account
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.OwnerID != nil && *o.OwnerID == userID
}

// AddItem adds a line to a draft, merging into an existing line of the
// same SKU. The merged line keeps the newest unit price.
func (o *Order) AddItem(line ItemLine) error {
	if err := o.requireStatus("add item", OrderStatusDraft); err != nil {
		return err
	}
	if err := line.validate(); err != nil {
		return err
	}
	o.upsertLine(line)
	o.recalculateTotals()
	return nil
}

// RemoveItem removes the line for sku from a draft
func (o *Order) RemoveItem(sku string) error {
	if err := o.requireStatus("remove item", OrderStatusDraft); err != nil {
		return err
	}
	idx := o.findItem(sku)
	if idx < 0 {
		return shared.NewDomainError("ITEM_NOT_FOUND", fmt.Sprintf("Item %s not found in order", sku))
	}
	o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
	o.recalculateTotals()
	return nil
}

// ReplaceItems swaps every line of a draft
func (o *Order) ReplaceItems(lines []ItemLine) error {
	if err := o.requireStatus("replace items", OrderStatusDraft); err != nil {
		return err
	}
	return o.setLines(lines)
}

// ReviseItems swaps the lines of a validated order. The caller must apply
// the stock plan from Diff(previous snapshot, new snapshot) atomically with it.
func (o *Order) ReviseItems(lines []ItemLine) error {
	if err := o.requireStatus("revise items", OrderStatusPendingPayment); err != nil {
		return err
	}
	if len(lines) == 0 {
		return shared.NewDomainError("EMPTY_ORDER", "A validated order must keep at least one item")
	}
	return o.setLines(lines)
}

func (o *Order) setLines(lines []ItemLine) error {
	for _, l := range lines {
		if err := l.validate(); err != nil {
			return err
		}
	}
	// Lines whose SKU stays on the order keep their id so attached
	// serialized units remain bound to them
	kept := make(map[string]uuid.UUID, len(o.Items))
	for _, item := range o.Items {
		kept[item.SKU] = item.ID
	}
	o.Items = make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		o.upsertLine(l)
	}
	for i := range o.Items {
		if id, ok := kept[o.Items[i].SKU]; ok {
			o.Items[i].ID = id
		}
	}
	o.recalculateTotals()
	return nil
}

func (o *Order) upsertLine(line ItemLine) {
	sku := strings.TrimSpace(line.SKU)
	if idx := o.findItem(sku); idx >= 0 {
		item := &o.Items[idx]
		item.Quantity += line.Quantity
		item.UnitPrice = line.UnitPrice
		if line.ProductName != "" {
			item.ProductName = line.ProductName
		}
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		return
	}
	o.Items = append(o.Items, OrderItem{
		ID:          uuid.New(),
		OrderID:     o.ID,
		SKU:         sku,
		ProductName: line.ProductName,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		TotalPrice:  line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
	})
}

func (o *Order) findItem(sku string) int {
	for i, item := range o.Items {
		if item.SKU == sku {
			return i
		}
	}
	return -1
}

// Item returns the line for sku, or nil
func (o *Order) Item(sku string) *OrderItem {
	if idx := o.findItem(sku); idx >= 0 {
		return &o.Items[idx]
	}
	return nil
}

// ItemsTotal is the sum of line totals, shipping excluded
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// recalculateTotals derives every total from the lines and the shipping cost
func (o *Order) recalculateTotals() {
	count := 0
	for i := range o.Items {
		item := &o.Items[i]
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		count += item.Quantity
	}
	o.TotalItems = count
	o.TotalAmount = o.ItemsTotal().Add(o.ShippingCost)
	o.Touch()
}

// Snapshot returns the ordered quantity per SKU
func (o *Order) Snapshot() inventory.Snapshot {
	s := make(inventory.Snapshot, len(o.Items))
	for _, item := range o.Items {
		s.Add(item.SKU, item.Quantity)
	}
	return s
}

// Validate moves a draft to pending_payment. Stock must already have been
// reserved by the caller.
func (o *Order) Validate() error {
	if err := o.requireStatus("validate", OrderStatusDraft); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("EMPTY_ORDER", "Cannot validate an order without items")
	}
	return o.transition(OrderStatusPendingPayment)
}

// MarkShipping moves a paid order to shipping once its units are attached
func (o *Order) MarkShipping() error {
	if err := o.requireStatus("attach serialized units", OrderStatusPendingPayment); err != nil {
		return err
	}
	return o.transition(OrderStatusShipping)
}

// ReopenForUnits moves a shipping order back to pending_payment after its
// serialized units were removed
func (o *Order) ReopenForUnits() error {
	if o.Status == OrderStatusPendingPayment {
		return nil
	}
	if err := o.requireStatus("remove serialized units", OrderStatusShipping); err != nil {
		return err
	}
	return o.transition(OrderStatusPendingPayment)
}

// Complete records the carrier tracking number and shipping surcharge.
// A free-shipping order always ends with a zero surcharge.
func (o *Order) Complete(trackingNumber string, surcharge decimal.Decimal) error {
	if err := o.requireStatus("complete", OrderStatusShipping); err != nil {
		return err
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return shared.NewDomainError("INVALID_TRACKING", "Tracking number is required")
	}
	if surcharge.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING_COST", "Shipping cost cannot be negative")
	}
	if o.FreeShipping {
		surcharge = decimal.Zero
	}
	o.CustomerRef = TrackingPrefix + trackingNumber
	o.ShippingCost = surcharge
	o.recalculateTotals()
	return o.transition(OrderStatusCompleted)
}

// TrackingNumber returns the stored tracking number, if any
func (o *Order) TrackingNumber() string {
	if strings.HasPrefix(o.CustomerRef, TrackingPrefix) {
		return strings.TrimPrefix(o.CustomerRef, TrackingPrefix)
	}
	return ""
}

// SetFreeShipping toggles free shipping on a non-terminal order
func (o *Order) SetFreeShipping(free bool) error {
	if o.Status.IsTerminal() {
		return newStatusViolation("change free shipping", o.Status, OrderStatusDraft, OrderStatusPendingPayment, OrderStatusShipping)
	}
	o.FreeShipping = free
	o.Touch()
	return nil
}

// Cancel cancels a draft, pending or shipping order. Stock is not touched here.
func (o *Order) Cancel() error {
	if err := o.requireStatus("cancel", OrderStatusDraft, OrderStatusPendingPayment, OrderStatusShipping); err != nil {
		return err
	}
	return o.transition(OrderStatusCancelled)
}

// HoldsStock reports whether the order's items are currently deducted from stock
func (o *Order) HoldsStock() bool {
	return o.Status == OrderStatusPendingPayment || o.Status == OrderStatusShipping
}

// EnsureDeletable returns an error unless the order is a draft
func (o *Order) EnsureDeletable() error {
	return o.requireStatus("delete", OrderStatusDraft)
}

func (o *Order) transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return newStatusViolation("move to "+string(target), o.Status)
	}
	o.Status = target
	o.Touch()
	return nil
}

func (o *Order) requireStatus(action string, allowed ...OrderStatus) error {
	for _, s := range allowed {
		if o.Status == s {
			return nil
		}
	}
	return newStatusViolation(action, o.Status, allowed...)
}

func newStatusViolation(action string, current OrderStatus, allowed ...OrderStatus) *shared.GuardViolation {
	reason := "current status " + string(current)
	if len(allowed) > 0 {
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = string(s)
		}
		reason += ", requires " + strings.Join(names, " or ")
	}
	return shared.NewGuardViolation(
		shared.ErrInvalidState.Code,
		fmt.Sprintf("Cannot %s order", action),
		[]shared.Offender{{Key: "status", Reason: reason}},
	)
}
