package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
)

var (
	ErrInvalidQuantity  = apperror.New(apperror.InvalidArgument, "Quantity must be at least 1")
	ErrCartNotFound     = apperror.New(apperror.NotFound, "Cart not found")
	ErrCartItemNotFound = apperror.New(apperror.NotFound, "Item not found in cart")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.withProducts(ctx, cart)
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, apperror.NewInsufficientStock(product.ID, product.Name, quantity, product.Stock,
			fmt.Sprintf("Only %d items available in stock", product.Stock))
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if i := cart.ProductIndex(productID); i >= 0 {
		// The line keeps the price it was first added at.
		newQuantity := cart.Items[i].Quantity + quantity
		if product.Stock < newQuantity {
			return nil, apperror.NewInsufficientStock(product.ID, product.Name, newQuantity, product.Stock,
				fmt.Sprintf("Cannot add more. Only %d items available", product.Stock))
		}
		cart.Items[i].Quantity = newQuantity
	} else {
		cart.Items = append(cart.Items, model.CartItem{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.Price,
		})
	}

	return s.save(ctx, cart)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	cart, i, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.getProduct(ctx, cart.Items[i].ProductID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, apperror.NewInsufficientStock(product.ID, product.Name, quantity, product.Stock,
			fmt.Sprintf("Only %d items available", product.Stock))
	}

	cart.Items[i].Quantity = quantity
	return s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*model.Cart, error) {
	cart, i, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	cart.RemoveItem(i)
	return s.save(ctx, cart)
}

// ClearCart empties an existing cart. Clearing an already empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	cart.Clear()
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) getProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *CartService) findItem(ctx context.Context, userID, itemID uuid.UUID) (*model.Cart, int, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, -1, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, -1, ErrCartNotFound
	}
	i := cart.ItemIndex(itemID)
	if i < 0 {
		return nil, -1, ErrCartItemNotFound
	}
	return cart, i, nil
}

func (s *CartService) save(ctx context.Context, cart *model.Cart) (*model.Cart, error) {
	cart.RecalculateTotals()
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return s.withProducts(ctx, cart)
}

// withProducts joins each line with its current catalog entry. Lines whose
// product was deleted keep a nil Product.
func (s *CartService) withProducts(ctx context.Context, cart *model.Cart) (*model.Cart, error) {
	if len(cart.Items) == 0 {
		return cart, nil
	}
	products, err := s.productRepo.GetByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range cart.Items {
		cart.Items[i].Product = byID[cart.Items[i].ProductID]
	}
	return cart, nil
}
