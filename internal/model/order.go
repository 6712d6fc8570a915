package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusProcessing, OrderStatusConfirmed, OrderStatusShipped,
	OrderStatusDelivered, OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

const DefaultPaymentMethod = "Cash on Delivery"

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          uuid.UUID
	Items           []OrderItem
	ShippingAddress Address
	PaymentMethod   string
	PaymentResult   *PaymentResult
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	TaxPrice        decimal.Decimal
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// User is joined on read for admin and detail views.
	User *UserSummary
}

// OrderItem is an immutable snapshot of a cart line taken at checkout.
type OrderItem struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Image     string
}

type PaymentResult struct {
	ID           string `json:"id" bson:"id"`
	Status       string `json:"status" bson:"status"`
	UpdateTime   string `json:"updateTime,omitempty" bson:"updateTime,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty" bson:"emailAddress,omitempty"`
}

type UserSummary struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

var (
	FreeShippingThreshold = decimal.NewFromInt(5000)
	FlatShippingPrice     = decimal.NewFromInt(100)
	TaxRate               = decimal.NewFromFloat(0.18)
)

type Prices struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CalculatePrices derives shipping, tax and total from the items subtotal.
// Shipping is free strictly above the threshold; tax is rounded half-up to
// whole currency units.
func CalculatePrices(items decimal.Decimal) Prices {
	shipping := FlatShippingPrice
	if items.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := items.Mul(TaxRate).Round(0)
	return Prices{
		Items:    items,
		Shipping: shipping,
		Tax:      tax,
		Total:    items.Add(shipping).Add(tax),
	}
}
