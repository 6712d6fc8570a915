package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/luxbag-api/internal/model"
)

type UserResponse struct {
	ID        uuid.UUID       `json:"_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      model.Role      `json:"role"`
	Addresses []model.Address `json:"addresses,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

// NewUserResponse returns the public identity of a user.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// NewProfileResponse adds addresses and the creation time to the identity.
func NewProfileResponse(u *model.User) UserResponse {
	resp := NewUserResponse(u)
	resp.Addresses = u.Addresses
	if resp.Addresses == nil {
		resp.Addresses = []model.Address{}
	}
	created := u.CreatedAt
	resp.CreatedAt = &created
	return resp
}

type AdminUserResponse struct {
	ID        uuid.UUID       `json:"_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      model.Role      `json:"role"`
	Addresses []model.Address `json:"addresses"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewAdminUserList(users []model.User) []AdminUserResponse {
	out := make([]AdminUserResponse, 0, len(users))
	for _, u := range users {
		addrs := u.Addresses
		if addrs == nil {
			addrs = []model.Address{}
		}
		out = append(out, AdminUserResponse{
			ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
			Addresses: addrs, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		})
	}
	return out
}

type ProductResponse struct {
	ID          uuid.UUID         `json:"_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       decimal.Decimal   `json:"price"`
	Brand       string            `json:"brand"`
	Category    model.Category    `json:"category"`
	Material    model.Material    `json:"material"`
	Color       string            `json:"color"`
	Stock       int               `json:"stock"`
	Images      []model.Image     `json:"images"`
	Rating      float64           `json:"rating"`
	NumReviews  int               `json:"numReviews"`
	IsFeatured  bool              `json:"isFeatured"`
	Dimensions  *model.Dimensions `json:"dimensions,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func NewProductResponse(p *model.Product) ProductResponse {
	images := p.Images
	if images == nil {
		images = []model.Image{}
	}
	return ProductResponse{
		ID: p.ID, Name: p.Name, Description: p.Description, Price: p.Price,
		Brand: p.Brand, Category: p.Category, Material: p.Material, Color: p.Color,
		Stock: p.Stock, Images: images, Rating: p.Rating, NumReviews: p.NumReviews,
		IsFeatured: p.IsFeatured, Dimensions: p.Dimensions,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func NewProductList(products []model.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, NewProductResponse(&products[i]))
	}
	return out
}

type ProductListResponse struct {
	Success     bool              `json:"success"`
	Count       int               `json:"count"`
	Total       int64             `json:"total"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Products    []ProductResponse `json:"products"`
}

// ProductSummary is the product view joined into cart lines.
type ProductSummary struct {
	ID     uuid.UUID       `json:"_id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []model.Image   `json:"images"`
	Brand  string          `json:"brand"`
	Stock  int             `json:"stock"`
}

type CartItemResponse struct {
	ID       uuid.UUID       `json:"_id"`
	Product  *ProductSummary `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type CartResponse struct {
	ID         uuid.UUID          `json:"_id"`
	User       uuid.UUID          `json:"user"`
	Items      []CartItemResponse `json:"items"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	TotalItems int                `json:"totalItems"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// NewCartResponse renders a joined cart. Lines whose product was deleted
// carry a null product.
func NewCartResponse(c *model.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		line := CartItemResponse{ID: item.ID, Quantity: item.Quantity, Price: item.Price}
		if p := item.Product; p != nil {
			images := p.Images
			if images == nil {
				images = []model.Image{}
			}
			line.Product = &ProductSummary{
				ID: p.ID, Name: p.Name, Price: p.Price, Images: images, Brand: p.Brand, Stock: p.Stock,
			}
		}
		items = append(items, line)
	}
	return CartResponse{
		ID: c.ID, User: c.UserID, Items: items,
		TotalPrice: c.TotalPrice, TotalItems: c.TotalItems,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

type OrderItemResponse struct {
	Product  uuid.UUID       `json:"product"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
}

type OrderResponse struct {
	ID              uuid.UUID            `json:"_id"`
	OrderNumber     string               `json:"orderNumber"`
	User            any                  `json:"user"`
	OrderItems      []OrderItemResponse  `json:"orderItems"`
	ShippingAddress model.Address        `json:"shippingAddress"`
	PaymentMethod   string               `json:"paymentMethod"`
	PaymentResult   *model.PaymentResult `json:"paymentResult,omitempty"`
	ItemsPrice      decimal.Decimal      `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal      `json:"shippingPrice"`
	TaxPrice        decimal.Decimal      `json:"taxPrice"`
	TotalPrice      decimal.Decimal      `json:"totalPrice"`
	OrderStatus     model.OrderStatus    `json:"orderStatus"`
	PaymentStatus   model.PaymentStatus  `json:"paymentStatus"`
	DeliveredAt     *time.Time           `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// NewOrderResponse renders user as {_id, name, email} when it was joined and
// as the bare id otherwise.
func NewOrderResponse(o *model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			Product: item.ProductID, Name: item.Name, Quantity: item.Quantity,
			Price: item.Price, Image: item.Image,
		})
	}
	var user any = o.UserID
	if o.User != nil {
		user = o.User
	}
	return OrderResponse{
		ID: o.ID, OrderNumber: o.OrderNumber, User: user, OrderItems: items,
		ShippingAddress: o.ShippingAddress, PaymentMethod: o.PaymentMethod,
		PaymentResult: o.PaymentResult,
		ItemsPrice:    o.ItemsPrice, ShippingPrice: o.ShippingPrice,
		TaxPrice: o.TaxPrice, TotalPrice: o.TotalPrice,
		OrderStatus: o.Status, PaymentStatus: o.PaymentStatus,
		DeliveredAt: o.DeliveredAt, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

func NewOrderList(orders []model.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

type StatsResponse struct {
	TotalUsers       int64                   `json:"totalUsers"`
	TotalProducts    int64                   `json:"totalProducts"`
	TotalOrders      int64                   `json:"totalOrders"`
	TotalRevenue     decimal.Decimal         `json:"totalRevenue"`
	RecentOrders     []OrderResponse         `json:"recentOrders"`
	OrdersByStatus   []model.StatusCount     `json:"ordersByStatus"`
	LowStockProducts []model.LowStockProduct `json:"lowStockProducts"`
}

func NewStatsResponse(s *model.DashboardStats) StatsResponse {
	byStatus := s.OrdersByStatus
	if byStatus == nil {
		byStatus = []model.StatusCount{}
	}
	lowStock := s.LowStockProducts
	if lowStock == nil {
		lowStock = []model.LowStockProduct{}
	}
	return StatsResponse{
		TotalUsers: s.TotalUsers, TotalProducts: s.TotalProducts, TotalOrders: s.TotalOrders,
		TotalRevenue: s.TotalRevenue, RecentOrders: NewOrderList(s.RecentOrders),
		OrdersByStatus: byStatus, LowStockProducts: lowStock,
	}
}
