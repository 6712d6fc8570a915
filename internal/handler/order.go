package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/middleware"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/service"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, errInvalidBody.Wrap(err))
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   dto.NewOrderResponse(order),
	})
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.svc.ListMyOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"count": len(orders), "orders": dto.NewOrderList(orders)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	order, err := h.svc.GetOrder(c.Request.Context(), id, middleware.GetUserID(c), middleware.GetUserRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"order": dto.NewOrderResponse(order)})
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	orders, err := h.svc.ListAllOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"count": len(orders), "orders": dto.NewOrderList(orders)})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidOrderStatus.Wrap(err))
		return
	}
	order, err := h.svc.UpdateOrderStatus(c.Request.Context(), id, model.OrderStatus(req.OrderStatus))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Order status updated", "order": dto.NewOrderResponse(order)})
}
