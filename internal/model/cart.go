package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Items      []CartItem
	TotalPrice decimal.Decimal
	TotalItems int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartItem is a line of the cart. Price is captured when the product is first
// added and is not refreshed from the catalog afterwards.
type CartItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal

	// Product is joined on read and never persisted. Nil when the product
	// has been deleted from the catalog.
	Product *Product
}

func NewCart(userID uuid.UUID) *Cart {
	return &Cart{
		ID:         uuid.New(),
		UserID:     userID,
		Items:      []CartItem{},
		TotalPrice: decimal.Zero,
	}
}

// RecalculateTotals derives TotalPrice and TotalItems from the current items.
func (c *Cart) RecalculateTotals() {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}
	c.TotalPrice = total
	c.TotalItems = count
}

// Clear empties the cart and zeroes both totals.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalPrice = decimal.Zero
	c.TotalItems = 0
}

func (c *Cart) ItemIndex(itemID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) ProductIndex(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) RemoveItem(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
