package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartRecalculateTotals(t *testing.T) {
	cart := NewCart(uuid.New())
	cart.Items = []CartItem{
		{ID: uuid.New(), ProductID: uuid.New(), Quantity: 2, Price: decimal.NewFromInt(1200)},
		{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString("99.50")},
	}

	cart.RecalculateTotals()

	assert.True(t, decimal.RequireFromString("2499.50").Equal(cart.TotalPrice))
	assert.Equal(t, 3, cart.TotalItems)

	cart.RemoveItem(0)
	cart.RecalculateTotals()
	assert.True(t, decimal.RequireFromString("99.50").Equal(cart.TotalPrice))
	assert.Equal(t, 1, cart.TotalItems)

	cart.Clear()
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())
	assert.Zero(t, cart.TotalItems)
}

func TestCartLookups(t *testing.T) {
	productID := uuid.New()
	itemID := uuid.New()
	cart := NewCart(uuid.New())
	cart.Items = append(cart.Items, CartItem{ID: itemID, ProductID: productID, Quantity: 1, Price: decimal.NewFromInt(10)})

	assert.Equal(t, 0, cart.ItemIndex(itemID))
	assert.Equal(t, 0, cart.ProductIndex(productID))
	assert.Equal(t, -1, cart.ItemIndex(uuid.New()))
	assert.Equal(t, -1, cart.ProductIndex(uuid.New()))
	assert.Equal(t, []uuid.UUID{productID}, cart.ProductIDs())
}

func TestCalculatePrices(t *testing.T) {
	tests := []struct {
		name     string
		items    string
		shipping string
		tax      string
		total    string
	}{
		{"below threshold", "1000", "100", "180", "1280"},
		{"at threshold pays shipping", "5000", "100", "900", "6000"},
		{"above threshold ships free", "5001", "0", "900", "5901"},
		{"tax rounds half up", "2.5", "100", "0", "102.5"},
		{"tax rounds up", "2.78", "100", "1", "103.78"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CalculatePrices(decimal.RequireFromString(tt.items))
			assert.Equal(t, tt.shipping, p.Shipping.String())
			assert.Equal(t, tt.tax, p.Tax.String())
			assert.Equal(t, tt.total, p.Total.String())
		})
	}
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, CategoryShoulderBag.Valid())
	assert.False(t, Category("Backpack").Valid())
	assert.True(t, MaterialExoticLeather.Valid())
	assert.False(t, Material("Wood").Valid())
	assert.True(t, OrderStatusDelivered.Valid())
	assert.False(t, OrderStatus("Lost").Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
}

func TestPriceFits(t *testing.T) {
	for s, want := range map[string]bool{
		"0":             true,
		"9500":          true,
		"1234.50":       true,
		"9999999999.99": true,
		"10000000000":   false,
		"10.005":        false,
		"1234567890123456789012345678901234567.5": false,
	} {
		assert.Equal(t, want, PriceFits(decimal.RequireFromString(s)), s)
	}
}
