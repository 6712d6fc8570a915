package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/middleware"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/service"
)

var errProductIDRequired = apperror.New(apperror.InvalidArgument, "Product ID is required")

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func cartPayload(message string, cart *model.Cart) gin.H {
	payload := gin.H{"cart": dto.NewCartResponse(cart)}
	if message != "" {
		payload["message"] = message
	}
	return payload
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cartPayload("", cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errProductIDRequired.Wrap(err))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	cart, err := h.svc.AddItem(c.Request.Context(), middleware.GetUserID(c), req.ProductID, quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cartPayload("Item added to cart", cart))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := parseID(c, "itemId", "cart item")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidQuantity.Wrap(err))
		return
	}
	cart, err := h.svc.UpdateItem(c.Request.Context(), middleware.GetUserID(c), itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cartPayload("Cart updated", cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := parseID(c, "itemId", "cart item")
	if !ok {
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), middleware.GetUserID(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cartPayload("Item removed from cart", cart))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	cart, err := h.svc.ClearCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cartPayload("Cart cleared", cart))
}
