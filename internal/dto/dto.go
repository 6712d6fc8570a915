package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/luxbag-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest leaves a field unchanged when it is empty. Addresses
// replaces the stored list when present, even as [].
type UpdateProfileRequest struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Addresses []model.Address `json:"addresses"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// --- Product ---

// ProductRequest is used for both create and partial update. Nil means the
// field was not supplied.
type ProductRequest struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Price       *decimal.Decimal  `json:"price"`
	Brand       *string           `json:"brand"`
	Category    *string           `json:"category"`
	Material    *string           `json:"material"`
	Color       *string           `json:"color"`
	Stock       *int              `json:"stock"`
	IsFeatured  *bool             `json:"isFeatured"`
	Dimensions  *model.Dimensions `json:"dimensions"`
}

type ListProductsRequest struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Brand    string `form:"brand"`
	Material string `form:"material"`
	Color    string `form:"color"`
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// --- Cart ---

// AddCartItemRequest defaults Quantity to 1 when it is omitted.
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  *int      `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// --- Order ---

type CreateOrderRequest struct {
	ShippingAddress *model.Address       `json:"shippingAddress"`
	PaymentMethod   string               `json:"paymentMethod"`
	PaymentResult   *model.PaymentResult `json:"paymentResult"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}
