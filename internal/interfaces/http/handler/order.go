package handler

import (
	tradeapp "github.com/dbcb2b/backend/internal/application/trade"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// OrderHandler handles the order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orderService *tradeapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateDraft godoc
// @ID           createDraftOrder
// @Summary      Create a draft order
// @Description  Creates a draft owned by the caller. Clients may hold a single draft.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.CreateDraftRequest true "Draft name and items"
// @Success      201 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /orders/draft [post]
func (h *OrderHandler) CreateDraft(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	var req tradeapp.CreateDraftRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateDraft(c.Request.Context(), principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ReplaceItems replaces every line of a draft
func (h *OrderHandler) ReplaceItems(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req tradeapp.ReplaceItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.ReplaceItems(c.Request.Context(), principal, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Get godoc
// @ID           getOrder
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List orders
// @Description  Operators see every order; clients see their own.
// @Tags         orders
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        search    query string false "Search by name or customer reference"
// @Param        status    query string false "Order status"
// @Success      200 {object} dto.Response{data=[]tradeapp.OrderListItemResponse}
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	var req dto.OrderListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	page, pageSize := pagination(req.ListRequest)

	orders, total, err := h.orderService.List(c.Request.Context(), principal, tradeapp.OrderListFilter{
		Search:   req.Search,
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// Validate godoc
// @ID           validateOrder
// @Summary      Validate a draft
// @Description  Moves a draft to pending_payment and takes its items out of stock.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=tradeapp.StockReportResponse}
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /orders/{id}/validate [post]
func (h *OrderHandler) Validate(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	report, err := h.orderService.Validate(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ReviseItems reconciles the lines of a validated order against stock
func (h *OrderHandler) ReviseItems(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req tradeapp.ReviseItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.orderService.ReviseItems(c.Request.Context(), principal, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Cancel cancels an order, returning validated stock when configured to
func (h *OrderHandler) Cancel(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	report, err := h.orderService.Cancel(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Complete godoc
// @ID           completeOrder
// @Summary      Complete a shipping order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string                         true "Order ID"
// @Param        request body tradeapp.CompleteOrderRequest  true "Tracking number and optional shipping cost"
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req tradeapp.CompleteOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Complete(c.Request.Context(), principal, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// SetFreeShipping toggles the free shipping flag
func (h *OrderHandler) SetFreeShipping(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req tradeapp.FreeShippingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.SetFreeShipping(c.Request.Context(), principal, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete deletes an order the caller may remove
func (h *OrderHandler) Delete(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), principal, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ShippingCost quotes shipping for an item count
func (h *OrderHandler) ShippingCost(c *gin.Context) {
	var req dto.ShippingCostRequest
	if !h.bindQuery(c, &req) {
		return
	}

	resp, err := h.orderService.ShippingCost(req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
