package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// IdempotencyHeader lets clients retry order creation safely.
const IdempotencyHeader = "Idempotency-Key"

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	service ports.OrderService
}

func NewOrderHandler(service ports.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create handles POST /api/orders.
//
// @Summary      Place an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Idempotency key to prevent duplicate orders"
// @Param        body             body      createOrderRequest  true   "Order items and delivery details"
// @Success      201              {object}  orderResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Router       /orders [post]
func (h *OrderHandler) Create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	key := strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader))
	order, err := h.service.Create(c.Request().Context(), caller, toCreateOrderInput(req, key))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/orders/"+order.ID)
	return c.JSON(http.StatusCreated, toOrderResponse(order))
}

// MyOrders handles GET /api/orders/my-orders.
//
// @Summary      List the caller's orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {object}  orderListResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Router       /orders/my-orders [get]
func (h *OrderHandler) MyOrders(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var q listOrdersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := h.service.ListMine(c.Request().Context(), caller, toListInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderListResponse(page))
}

// List handles GET /api/orders (admin).
//
// @Summary      List all orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {object}  orderListResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /orders [get]
func (h *OrderHandler) List(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var q listOrdersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), caller, toListInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderListResponse(page))
}

// Stats handles GET /api/orders/stats (admin).
//
// @Summary      Order statistics
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  orderStatsResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /orders/stats [get]
func (h *OrderHandler) Stats(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}

// Get handles GET /api/orders/:id.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var p idParam
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}

	order, err := h.service.Get(c.Request().Context(), caller, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PATCH /api/orders/:id/status (admin).
//
// @Summary      Change an order's status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Order id"
// @Param        body  body      updateStatusRequest  true  "Target status"
// @Success      200   {object}  modifiedResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	n, err := h.service.UpdateStatus(c.Request().Context(), caller, req.ID, domain.OrderStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, modifiedResponse{Message: "order status updated", ModifiedCount: n})
}

// Cancel handles PATCH /api/orders/:id/cancel.
//
// @Summary      Cancel an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  modifiedResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /orders/{id}/cancel [patch]
func (h *OrderHandler) Cancel(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var p idParam
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}

	n, err := h.service.Cancel(c.Request().Context(), caller, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, modifiedResponse{Message: "order cancelled", ModifiedCount: n})
}
