package handler

import (
	"mime"
	"net/http"

	tradeapp "github.com/dbcb2b/backend/internal/application/trade"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// UnitHandler handles serialized unit uploads and order exports
type UnitHandler struct {
	BaseHandler
	unitService   *tradeapp.UnitService
	exportService *tradeapp.ExportService
	maxUploadSize int64
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(unitService *tradeapp.UnitService, exportService *tradeapp.ExportService, maxUploadSize int64) *UnitHandler {
	return &UnitHandler{
		unitService:   unitService,
		exportService: exportService,
		maxUploadSize: maxUploadSize,
	}
}

// Import godoc
// @ID           importOrderUnits
// @Summary      Attach serialized units to an order
// @Description  The upload must match every ordered quantity exactly. Success moves the order to shipping.
// @Tags         units
// @Accept       multipart/form-data
// @Produce      json
// @Param        id   path     string true "Order ID"
// @Param        file formData file   true "CSV or XLSX unit list"
// @Success      200 {object} dto.Response{data=tradeapp.UnitImportResponse}
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /orders/{id}/units/import [post]
func (h *UnitHandler) Import(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	upload, ok := h.readUpload(c, h.maxUploadSize)
	if !ok {
		return
	}

	resp, err := h.unitService.ImportUnits(c.Request.Context(), principal, id, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List lists the serialized units attached to an order
func (h *UnitHandler) List(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	units, err := h.unitService.ListUnits(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, units)
}

// Remove detaches every unit and moves the order back to pending_payment
func (h *UnitHandler) Remove(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.unitService.RemoveUnits(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Export godoc
// @ID           exportOrder
// @Summary      Download an order as CSV or XLSX
// @Tags         units
// @Produce      text/csv
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id     path  string true  "Order ID"
// @Param        type   query string false "sku or imei"
// @Param        format query string false "csv or xlsx"
// @Success      200 {file} file
// @Failure      400 {object} dto.Response
// @Router       /orders/{id}/export [get]
func (h *UnitHandler) Export(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.ExportRequest
	if !h.bindQuery(c, &req) {
		return
	}

	file, err := h.exportService.Export(c.Request.Context(), principal, id, req.Type, req.Format)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
