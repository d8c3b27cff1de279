package handler

import (
	catalogapp "github.com/dbcb2b/backend/internal/application/catalog"
	importapp "github.com/dbcb2b/backend/internal/application/import"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CatalogHandler handles catalog browsing and supplier catalog refreshes
type CatalogHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
	refreshService *importapp.CatalogRefreshService
	maxUploadSize  int64
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(
	productService *catalogapp.ProductService,
	refreshService *importapp.CatalogRefreshService,
	maxUploadSize int64,
) *CatalogHandler {
	return &CatalogHandler{
		productService: productService,
		refreshService: refreshService,
		maxUploadSize:  maxUploadSize,
	}
}

// List godoc
// @ID           listCatalogProducts
// @Summary      List catalog products
// @Tags         catalog
// @Produce      json
// @Param        page        query int    false "Page number"
// @Param        page_size   query int    false "Page size"
// @Param        search      query string false "Search by SKU or name"
// @Param        active_only query bool   false "Only active products"
// @Param        vat_type    query string false "marginal or non_marginal"
// @Success      200 {object} dto.Response{data=[]catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response
// @Router       /catalog/products [get]
func (h *CatalogHandler) List(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	var req dto.CatalogListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	page, pageSize := pagination(req.ListRequest)

	products, total, err := h.productService.List(c.Request.Context(), catalogapp.ProductListFilter{
		Search:     req.Search,
		ActiveOnly: req.ActiveOnly,
		VATType:    req.VATType,
		Page:       page,
		PageSize:   pageSize,
		OrderBy:    req.OrderBy,
		OrderDir:   req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !principal.IsAdmin() {
		for i := range products {
			products[i].HideCost()
		}
	}
	h.SuccessWithMeta(c, products, total, page, pageSize)
}

// Get godoc
// @ID           getCatalogProduct
// @Summary      Get a catalog product by SKU
// @Tags         catalog
// @Produce      json
// @Param        sku path string true "Product SKU"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response
// @Router       /catalog/products/{sku} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	product, err := h.productService.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !principal.IsAdmin() {
		product.HideCost()
	}
	h.Success(c, product)
}

// Neighbors resolves the closest catalog product for a name the catalog
// does not know. An unmatched probe is a successful response with
// matched=false.
func (h *CatalogHandler) Neighbors(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	var req dto.NeighborQueryRequest
	if !h.bindQuery(c, &req) {
		return
	}

	resp, err := h.productService.ResolveNeighbor(c.Request.Context(), catalogapp.NeighborRequest{
		Name:          req.Name,
		Appearance:    req.Appearance,
		Functionality: req.Functionality,
		VATType:       req.VATType,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if resp.Product != nil && !principal.IsAdmin() {
		resp.Product.HideCost()
	}
	h.Success(c, resp)
}

// Import godoc
// @ID           importSupplierCatalog
// @Summary      Refresh the catalog from a supplier spreadsheet
// @Tags         catalog
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV or XLSX supplier catalog"
// @Success      200 {object} dto.Response{data=importapp.CatalogRefreshResult}
// @Failure      400 {object} dto.Response
// @Failure      413 {object} dto.Response
// @Router       /catalog/import [post]
func (h *CatalogHandler) Import(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	upload, ok := h.readUpload(c, h.maxUploadSize)
	if !ok {
		return
	}

	result, err := h.refreshService.Refresh(c.Request.Context(), principal, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
