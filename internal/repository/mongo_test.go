package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/model"
)

// 38 significant digits, beyond what a BSON decimal can hold exactly.
var overPrecise = decimal.RequireFromString("1234567890123456789012345678901234567.5")

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1234.50", "9999999999.99", "0.01"} {
		d := decimal.RequireFromString(s)
		v, err := toDecimal128(d)
		require.NoError(t, err, s)
		back, err := fromDecimal128(v)
		require.NoError(t, err, s)
		assert.True(t, d.Equal(back), "%s came back as %s", s, back)
	}
}

func TestToDecimal128RejectsLossyValues(t *testing.T) {
	_, err := toDecimal128(overPrecise)
	assert.Error(t, err)
}

func TestMongoDocsPropagateDecimalErrors(t *testing.T) {
	_, err := newProductDoc(&model.Product{ID: uuid.New(), Name: "Kelly", Price: overPrecise})
	assert.Error(t, err)

	_, err = newOrderDoc(&model.Order{
		ID:         uuid.New(),
		Items:      []model.OrderItem{{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(100)}},
		ItemsPrice: decimal.NewFromInt(100),
		TotalPrice: overPrecise,
	})
	assert.Error(t, err)

	_, err = productFilterDoc(ProductFilter{MinPrice: &overPrecise})
	assert.Error(t, err)

	doc, err := newProductDoc(&model.Product{ID: uuid.New(), Name: "Kelly", Price: decimal.RequireFromString("5200.50")})
	require.NoError(t, err)
	p, err := doc.toModel()
	require.NoError(t, err)
	assert.Equal(t, "5200.5", p.Price.String())
}
