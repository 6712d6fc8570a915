package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/apperror"
)

func TestCartService_GetCartCreatesEmptyCart(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	userID := uuid.New()

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())
	assert.Equal(t, 0, cart.TotalItems)
}

func TestCartService_AddItem(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()
	p := seedProduct(t, repos.Products, "Kelly 28", 2500, 5)

	cart, err := svc.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 1, cart.TotalItems)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, "Kelly 28", cart.Items[0].Product.Name)

	cart, err = svc.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(7500)))
	assert.Equal(t, 3, cart.TotalItems)
}

func TestCartService_AddItemStockBoundary(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()
	p := seedProduct(t, repos.Products, "Jackie", 3100, 2)

	_, err := svc.AddItem(ctx, userID, p.ID, 3)
	require.Error(t, err)
	assert.Equal(t, apperror.InsufficientStock, apperror.KindOf(err))
	assert.Equal(t, "Only 2 items available in stock", apperror.Message(err))

	_, err = svc.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, userID, p.ID, 1)
	require.Error(t, err)
	assert.Equal(t, "Cannot add more. Only 2 items available", apperror.Message(err))

	cart, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartService_AddItemValidation(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	p := seedProduct(t, repos.Products, "Alma", 1500, 5)
	_, err = svc.AddItem(ctx, uuid.New(), p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_KeepsCapturedPrice(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()
	p := seedProduct(t, repos.Products, "Lady Dior", 2500, 10)

	_, err := svc.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)

	p.Price = decimal.NewFromInt(3000)
	require.NoError(t, repos.Products.Update(ctx, p))

	cart, err := svc.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(2500)))
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(5000)))
	assert.True(t, cart.Items[0].Product.Price.Equal(decimal.NewFromInt(3000)))
}

func TestCartService_UpdateItem(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.UpdateItem(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartNotFound)

	p := seedProduct(t, repos.Products, "Peekaboo", 4200, 3)
	cart, err := svc.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = svc.UpdateItem(ctx, userID, itemID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.UpdateItem(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	_, err = svc.UpdateItem(ctx, userID, itemID, 4)
	require.Error(t, err)
	assert.Equal(t, "Only 3 items available", apperror.Message(err))

	cart, err = svc.UpdateItem(ctx, userID, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(12600)))
}

func TestCartService_UpdateItemDeletedProduct(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()
	p := seedProduct(t, repos.Products, "Baguette", 2800, 3)

	cart, err := svc.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	require.NoError(t, repos.Products.Delete(ctx, p.ID))

	cart, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Nil(t, cart.Items[0].Product)

	_, err = svc.UpdateItem(ctx, userID, cart.Items[0].ID, 2)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_RemoveItem(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()
	a := seedProduct(t, repos.Products, "Speedy", 900, 5)
	b := seedProduct(t, repos.Products, "Neverfull", 2100, 5)

	_, err := svc.AddItem(ctx, userID, a.ID, 2)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, userID, b.ID, 1)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(3900)))

	cart, err = svc.RemoveItem(ctx, userID, cart.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].ProductID)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(2100)))
	assert.Equal(t, 1, cart.TotalItems)

	_, err = svc.RemoveItem(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_ClearCart(t *testing.T) {
	repos := newRepos()
	svc := NewCartService(repos.Carts, repos.Products)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.ClearCart(ctx, userID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	p := seedProduct(t, repos.Products, "Saddle", 3500, 5)
	_, err = svc.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)

	cart, err := svc.ClearCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())

	cart, err = svc.ClearCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.TotalItems)
}
