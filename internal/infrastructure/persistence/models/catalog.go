package models

import (
	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	SKU            string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_products_sku"`
	Name           string          `gorm:"column:product_name;type:varchar(255);not null"`
	Appearance     string          `gorm:"type:varchar(100)"`
	Functionality  string          `gorm:"type:varchar(100)"`
	Boxed          string          `gorm:"type:varchar(100)"`
	Color          string          `gorm:"type:varchar(100)"`
	AdditionalInfo string          `gorm:"type:text"`
	ItemGroup      string          `gorm:"type:varchar(100)"`
	CloudLock      string          `gorm:"type:varchar(100)"`
	VATType        catalog.VATType `gorm:"column:vat_type;type:varchar(20)"`
	Price          decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null;default:0"`
	PriceDBC       decimal.Decimal `gorm:"column:price_dbc;type:decimal(18,2);not null;default:0"`
	Quantity       int             `gorm:"not null;default:0"`
	IsActive       bool            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity: m.BaseModel.ToDomain(),
		SKU:        m.SKU,
		Name:       m.Name,
		Attributes: catalog.Attributes{
			Appearance:     m.Appearance,
			Functionality:  m.Functionality,
			Boxed:          m.Boxed,
			Color:          m.Color,
			AdditionalInfo: m.AdditionalInfo,
			CloudLock:      m.CloudLock,
			ItemGroup:      m.ItemGroup,
		},
		VATType:       m.VATType,
		SupplierPrice: m.Price,
		ResalePrice:   m.PriceDBC,
		Quantity:      m.Quantity,
		IsActive:      m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Appearance = p.Attributes.Appearance
	m.Functionality = p.Attributes.Functionality
	m.Boxed = p.Attributes.Boxed
	m.Color = p.Attributes.Color
	m.AdditionalInfo = p.Attributes.AdditionalInfo
	m.ItemGroup = p.Attributes.ItemGroup
	m.CloudLock = p.Attributes.CloudLock
	m.VATType = p.VATType
	m.Price = p.SupplierPrice
	m.PriceDBC = p.ResalePrice
	m.Quantity = p.Quantity
	m.IsActive = p.IsActive
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
