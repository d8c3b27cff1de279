package trade

import (
	"time"

	"github.com/dbcb2b/backend/internal/domain/inventory"
	"github.com/dbcb2b/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// ItemRequest is one order line as sent by a caller. Prices are never taken
// from the caller.
type ItemRequest struct {
	SKU      string `json:"sku" binding:"required,sku"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CreateDraftRequest represents a request to create a draft order
type CreateDraftRequest struct {
	Name  string        `json:"name" binding:"max=200"`
	Items []ItemRequest `json:"items" binding:"dive"`
}

// ReplaceItemsRequest replaces every line of an order
type ReplaceItemsRequest struct {
	Items []ItemRequest `json:"items" binding:"dive"`
}

// ReviseItemsRequest replaces the lines of a validated order
type ReviseItemsRequest struct {
	Items []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CompleteOrderRequest records the shipment of an order
type CompleteOrderRequest struct {
	TrackingNumber string           `json:"tracking_number" binding:"required,max=100"`
	ShippingCost   *decimal.Decimal `json:"shipping_cost"`
}

// FreeShippingRequest toggles free shipping
type FreeShippingRequest struct {
	FreeShipping bool `json:"free_shipping"`
}

// OrderListFilter holds order listing parameters
type OrderListFilter struct {
	Search   string
	Status   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// ==================== Responses ====================

// OrderItemResponse is one line of an order
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// OrderResponse is the full view of an order
type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Status         string              `json:"status"`
	StatusLabel    trade.StatusLabel   `json:"status_label"`
	OwnerID        *uuid.UUID          `json:"user_id,omitempty"`
	Items          []OrderItemResponse `json:"items"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	TotalItems     int                 `json:"total_items"`
	ShippingCost   decimal.Decimal     `json:"shipping_cost"`
	FreeShipping   bool                `json:"free_shipping"`
	CustomerRef    string              `json:"customer_ref"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	VATLabel       string              `json:"vat_type"`
	Version        int                 `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// OrderListItemResponse is the list view of an order, without lines
type OrderListItemResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	StatusLabel  trade.StatusLabel `json:"status_label"`
	OwnerID      *uuid.UUID        `json:"user_id,omitempty"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	TotalItems   int               `json:"total_items"`
	FreeShipping bool              `json:"free_shipping"`
	CustomerRef  string            `json:"customer_ref"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// StockReportResponse is an order together with the stock changes applied
// by the operation that produced it
type StockReportResponse struct {
	Order     *OrderResponse            `json:"order"`
	Mutations []inventory.StockMutation `json:"mutations"`
	Skipped   []string                  `json:"skipped,omitempty"`
}

// SerializedUnitResponse is one attached device
type SerializedUnitResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrderItemID    uuid.UUID       `json:"order_item_id"`
	SKU            string          `json:"sku"`
	IMEI           string          `json:"imei"`
	ProductName    string          `json:"product_name"`
	Appearance     string          `json:"appearance"`
	Functionality  string          `json:"functionality"`
	Boxed          string          `json:"boxed"`
	Color          string          `json:"color"`
	CloudLock      string          `json:"cloud_lock"`
	AdditionalInfo string          `json:"additional_info"`
	SupplierPrice  decimal.Decimal `json:"supplier_price"`
	ResalePrice    decimal.Decimal `json:"dbc_price"`
}

// UnitImportResponse reports an accepted serialized-unit upload
type UnitImportResponse struct {
	Order       *OrderResponse `json:"order"`
	Attached    int            `json:"attached"`
	SkippedRows int            `json:"skipped_rows"`
	ArchiveKey  string         `json:"archive_key,omitempty"`
}

// UnitRemovalResponse reports a removal of every unit of an order
type UnitRemovalResponse struct {
	Order   *OrderResponse `json:"order"`
	Removed int64          `json:"removed"`
}

// ShippingCostResponse is the computed shipping cost for an item count
type ShippingCostResponse struct {
	TotalItems   int             `json:"total_items"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

// ==================== Mapping ====================

// ToOrderResponse maps a domain order. Labels are always derived from the status.
func ToOrderResponse(o *trade.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:          item.ID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}
	return &OrderResponse{
		ID:             o.ID,
		Name:           o.Name,
		Status:         string(o.Status),
		StatusLabel:    o.StatusLabel(),
		OwnerID:        o.OwnerID,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		TotalItems:     o.TotalItems,
		ShippingCost:   o.ShippingCost,
		FreeShipping:   o.FreeShipping,
		CustomerRef:    o.CustomerRef,
		TrackingNumber: o.TrackingNumber(),
		VATLabel:       o.VATLabel,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// ToOrderListItemResponse maps a domain order for listings
func ToOrderListItemResponse(o *trade.Order) OrderListItemResponse {
	return OrderListItemResponse{
		ID:           o.ID,
		Name:         o.Name,
		Status:       string(o.Status),
		StatusLabel:  o.StatusLabel(),
		OwnerID:      o.OwnerID,
		TotalAmount:  o.TotalAmount,
		TotalItems:   o.TotalItems,
		FreeShipping: o.FreeShipping,
		CustomerRef:  o.CustomerRef,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// ToSerializedUnitResponses maps domain units
func ToSerializedUnitResponses(units []trade.SerializedUnit) []SerializedUnitResponse {
	out := make([]SerializedUnitResponse, len(units))
	for i, u := range units {
		out[i] = SerializedUnitResponse{
			ID:             u.ID,
			OrderItemID:    u.OrderItemID,
			SKU:            u.SKU,
			IMEI:           u.IMEI,
			ProductName:    u.ProductName,
			Appearance:     u.Appearance,
			Functionality:  u.Functionality,
			Boxed:          u.Boxed,
			Color:          u.Color,
			CloudLock:      u.CloudLock,
			AdditionalInfo: u.AdditionalInfo,
			SupplierPrice:  u.SupplierPrice,
			ResalePrice:    u.ResalePrice,
		}
	}
	return out
}

func newStockReport(o *trade.Order, res *inventory.ApplyResult) *StockReportResponse {
	report := &StockReportResponse{Order: ToOrderResponse(o), Mutations: []inventory.StockMutation{}}
	if res != nil {
		if res.Mutations != nil {
			report.Mutations = res.Mutations
		}
		report.Skipped = res.Skipped
	}
	return report
}
