package dto

// CatalogListRequest holds catalog listing query parameters
type CatalogListRequest struct {
	ListRequest
	ActiveOnly bool   `form:"active_only"`
	VATType    string `form:"vat_type" binding:"max=20"`
}

// NeighborQueryRequest describes an unknown product to resolve against the catalog
type NeighborQueryRequest struct {
	Name          string `form:"name" binding:"required,max=255"`
	Appearance    string `form:"appearance" binding:"max=100"`
	Functionality string `form:"functionality" binding:"max=100"`
	VATType       string `form:"vat_type" binding:"max=20"`
}

// OrderListRequest holds order listing query parameters
type OrderListRequest struct {
	ListRequest
	Status string `form:"status"`
}

// OrderImportConfirmRequest is the multipart form of an order import confirmation
type OrderImportConfirmRequest struct {
	Name string `form:"name" binding:"max=200"`
}

// ExportRequest selects the export layout and file format
type ExportRequest struct {
	Type   string `form:"type"`
	Format string `form:"format"`
}

// ShippingCostRequest asks for the shipping cost of an item count
type ShippingCostRequest struct {
	Items int `form:"items" binding:"min=0"`
}
