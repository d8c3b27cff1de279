package models

import (
	"time"

	"github.com/dbcb2b/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	Name         string            `gorm:"type:varchar(200);not null"`
	Status       trade.OrderStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	StatusLabel  string            `gorm:"type:varchar(50);not null"`
	TotalAmount  decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	TotalItems   int               `gorm:"not null;default:0"`
	ShippingCost decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	FreeShipping bool              `gorm:"not null;default:false"`
	CustomerRef  string            `gorm:"type:varchar(255)"`
	VATType      string            `gorm:"column:vat_type;type:varchar(255)"`
	UserID       *uuid.UUID        `gorm:"type:uuid;index"`
	Items        []OrderItemModel  `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order. The status label
// column is ignored; labels are derived from the status.
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Status:            m.Status,
		OwnerID:           m.UserID,
		TotalAmount:       m.TotalAmount,
		TotalItems:        m.TotalItems,
		ShippingCost:      m.ShippingCost,
		FreeShipping:      m.FreeShipping,
		CustomerRef:       m.CustomerRef,
		VATLabel:          m.VATType,
		Items:             make([]trade.OrderItem, len(m.Items)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Name = o.Name
	m.Status = o.Status
	m.StatusLabel = o.Status.Label().FR
	m.TotalAmount = o.TotalAmount
	m.TotalItems = o.TotalItems
	m.ShippingCost = o.ShippingCost
	m.FreeShipping = o.FreeShipping
	m.CustomerRef = o.CustomerRef
	m.VATType = o.VATLabel
	m.UserID = o.OwnerID
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o.ID, item)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU         string          `gorm:"column:sku;type:varchar(100);not null;index"`
	ProductName string          `gorm:"type:varchar(255)"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:          m.ID,
		OrderID:     m.OrderID,
		SKU:         m.SKU,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TotalPrice:  m.TotalPrice,
	}
}

// OrderItemModelFromDomain maps a domain line of the given order
func OrderItemModelFromDomain(orderID uuid.UUID, item trade.OrderItem) OrderItemModel {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return OrderItemModel{
		ID:          item.ID,
		OrderID:     orderID,
		SKU:         item.SKU,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.TotalPrice,
	}
}

// SerializedUnitModel is the persistence model for a shipped device.
type SerializedUnitModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU            string          `gorm:"column:sku;type:varchar(100);not null"`
	IMEI           string          `gorm:"column:imei;type:varchar(100);not null"`
	ProductName    string          `gorm:"type:varchar(255)"`
	Appearance     string          `gorm:"type:varchar(100)"`
	Functionality  string          `gorm:"type:varchar(100)"`
	Boxed          string          `gorm:"type:varchar(100)"`
	Color          string          `gorm:"type:varchar(100)"`
	CloudLock      string          `gorm:"type:varchar(100)"`
	AdditionalInfo string          `gorm:"type:text"`
	SupplierPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DBCPrice       decimal.Decimal `gorm:"column:dbc_price;type:decimal(18,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SerializedUnitModel) TableName() string {
	return "serialized_units"
}

// ToDomain converts the persistence model to a domain SerializedUnit.
func (m *SerializedUnitModel) ToDomain() trade.SerializedUnit {
	return trade.SerializedUnit{
		ID:             m.ID,
		OrderItemID:    m.OrderItemID,
		SKU:            m.SKU,
		IMEI:           m.IMEI,
		ProductName:    m.ProductName,
		Appearance:     m.Appearance,
		Functionality:  m.Functionality,
		Boxed:          m.Boxed,
		Color:          m.Color,
		CloudLock:      m.CloudLock,
		AdditionalInfo: m.AdditionalInfo,
		SupplierPrice:  m.SupplierPrice,
		ResalePrice:    m.DBCPrice,
		CreatedAt:      m.CreatedAt,
	}
}

// SerializedUnitModelFromDomain maps a domain unit
func SerializedUnitModelFromDomain(u trade.SerializedUnit) *SerializedUnitModel {
	return &SerializedUnitModel{
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
		DBCPrice:       u.ResalePrice,
		CreatedAt:      u.CreatedAt,
	}
}
