package handler

import (
	importapp "github.com/dbcb2b/backend/internal/application/import"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// OrderImportHandler turns customer order spreadsheets into drafts
type OrderImportHandler struct {
	BaseHandler
	importService *importapp.OrderImportService
	maxUploadSize int64
}

// NewOrderImportHandler creates a new OrderImportHandler
func NewOrderImportHandler(importService *importapp.OrderImportService, maxUploadSize int64) *OrderImportHandler {
	return &OrderImportHandler{
		importService: importService,
		maxUploadSize: maxUploadSize,
	}
}

// Preview godoc
// @ID           previewOrderImport
// @Summary      Classify an order spreadsheet
// @Description  Splits the rows into known, neighbor-resolved and new products without writing anything.
// @Tags         order-import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV or XLSX order file"
// @Success      200 {object} dto.Response{data=importapp.OrderImportPreview}
// @Failure      400 {object} dto.Response
// @Router       /orders/import/preview [post]
func (h *OrderImportHandler) Preview(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	upload, ok := h.readUpload(c, h.maxUploadSize)
	if !ok {
		return
	}

	preview, err := h.importService.Preview(c.Request.Context(), principal, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Confirm godoc
// @ID           confirmOrderImport
// @Summary      Import an order spreadsheet as a draft
// @Tags         order-import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file   true  "CSV or XLSX order file"
// @Param        name formData string false "Draft name"
// @Success      201 {object} dto.Response{data=importapp.OrderImportResult}
// @Failure      400 {object} dto.Response
// @Router       /orders/import/confirm [post]
func (h *OrderImportHandler) Confirm(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	upload, ok := h.readUpload(c, h.maxUploadSize)
	if !ok {
		return
	}

	var req dto.OrderImportConfirmRequest
	if !h.bindForm(c, &req) {
		return
	}

	result, err := h.importService.Confirm(c.Request.Context(), principal, upload, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
