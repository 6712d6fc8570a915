package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/events"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
	"github.com/flicky/luxbag-api/internal/telemetry"
)

// paymentCompleted is the gateway status that marks a prepaid order as paid.
const paymentCompleted = "COMPLETED"

var (
	ErrIncompleteAddress  = apperror.New(apperror.InvalidArgument, "Please provide complete shipping address")
	ErrEmptyCart          = apperror.New(apperror.InvalidState, "Your cart is empty.")
	ErrOrderNotFound      = apperror.New(apperror.NotFound, "Order not found")
	ErrOrderAccessDenied  = apperror.New(apperror.Forbidden, "Not authorized to view this order")
	ErrInvalidOrderStatus = apperror.New(apperror.InvalidArgument, "Invalid order status")
)

// ProductCache drops cached catalog entries whose stock changed.
type ProductCache interface {
	InvalidateCache(ctx context.Context, ids ...uuid.UUID)
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	publisher   events.Publisher
	cache       ProductCache
	log         *slog.Logger
}

// NewOrderService wires checkout. publisher and cache may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	publisher events.Publisher,
	cache ProductCache,
	log *slog.Logger,
) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		cache:       cache,
		log:         log,
	}
}

// CreateOrder turns the user's cart into an order. Stock is taken with a
// conditional decrement per line; if any line or the order insert fails, the
// decrements already applied are returned.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (_ *model.Order, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "OrderService.CreateOrder")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	addr := req.ShippingAddress
	if addr == nil || strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.City) == "" {
		return nil, ErrIncompleteAddress
	}

	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		telemetry.CheckoutFailures.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	span.SetAttributes(attribute.Int("cart.lines", len(cart.Items)))

	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			telemetry.CheckoutFailures.WithLabelValues("product_missing").Inc()
			return nil, ErrProductNotFound
		}
		if product.Stock < line.Quantity {
			telemetry.CheckoutFailures.WithLabelValues("insufficient_stock").Inc()
			return nil, insufficientStock(product.ID, product.Name, line.Quantity, product.Stock)
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Image:     product.FirstImageURL(),
		})
	}

	if err := s.reserveStock(ctx, items); err != nil {
		return nil, err
	}

	prices := model.CalculatePrices(cart.TotalPrice)
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = model.DefaultPaymentMethod
	}
	order := &model.Order{
		ID:              uuid.New(),
		OrderNumber:     ulid.Make().String(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: *addr,
		PaymentMethod:   paymentMethod,
		PaymentResult:   req.PaymentResult,
		ItemsPrice:      prices.Items,
		ShippingPrice:   prices.Shipping,
		TaxPrice:        prices.Tax,
		TotalPrice:      prices.Total,
		Status:          model.OrderStatusProcessing,
		PaymentStatus:   model.PaymentStatusPending,
	}
	if paymentMethod != model.DefaultPaymentMethod && req.PaymentResult != nil && req.PaymentResult.Status == paymentCompleted {
		order.PaymentStatus = model.PaymentStatusPaid
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.releaseStock(ctx, items)
		telemetry.CheckoutFailures.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("create order: %w", err)
	}

	cart.Clear()
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		s.log.ErrorContext(ctx, "clear cart after checkout", "order_id", order.ID, "user_id", userID, "error", err)
	}

	s.publish(ctx, events.OrderPlaced, order)
	if s.cache != nil {
		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		s.cache.InvalidateCache(ctx, ids...)
	}

	telemetry.OrdersPlaced.Inc()
	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	s.log.InfoContext(ctx, "order placed", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.TotalPrice.String())
	return order, nil
}

func insufficientStock(id uuid.UUID, name string, requested, available int) error {
	return apperror.NewInsufficientStock(id, name, requested, available,
		fmt.Sprintf("Insufficient stock for %s. Only %d available", name, available))
}

// reserveStock decrements every line or none of them.
func (s *OrderService) reserveStock(ctx context.Context, items []model.OrderItem) error {
	for i, item := range items {
		err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		s.releaseStock(ctx, items[:i])

		if errors.Is(err, repository.ErrInsufficientStock) {
			current, getErr := s.productRepo.GetByID(ctx, item.ProductID)
			if getErr == nil && current == nil {
				// Deleted after the pre-check.
				telemetry.CheckoutFailures.WithLabelValues("product_missing").Inc()
				return ErrProductNotFound
			}
			telemetry.CheckoutFailures.WithLabelValues("insufficient_stock").Inc()
			available := 0
			if current != nil {
				available = current.Stock
			}
			return insufficientStock(item.ProductID, item.Name, item.Quantity, available)
		}
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.CheckoutFailures.WithLabelValues("product_missing").Inc()
			return ErrProductNotFound
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

// releaseStock gives back decremented stock. It runs even when the request
// context has been cancelled.
func (s *OrderService) releaseStock(ctx context.Context, items []model.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if err := s.productRepo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.ErrorContext(ctx, "release stock", "product_id", item.ProductID, "quantity", item.Quantity, "error", err)
			continue
		}
		telemetry.StockCompensations.Inc()
	}
}

func (s *OrderService) publish(ctx context.Context, t events.Type, order *model.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(t, order)); err != nil {
		s.log.WarnContext(ctx, "publish order event", "type", t, "order_id", order.ID, "error", err)
	}
}

// GetOrder returns an order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID, role model.Role) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID && role != model.RoleAdmin {
		return nil, ErrOrderAccessDenied
	}
	orders := []model.Order{*order}
	if err := attachUsers(ctx, s.userRepo, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := attachUsers(ctx, s.userRepo, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus sets any valid status. Delivered also stamps deliveredAt
// and marks the order paid.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	order.Status = status
	if status == model.OrderStatusDelivered {
		now := time.Now().UTC()
		order.DeliveredAt = &now
		order.PaymentStatus = model.PaymentStatusPaid
	}
	if err := s.orderRepo.UpdateStatus(ctx, order); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.publish(ctx, events.OrderStatusChanged, order)
	return order, nil
}

// attachUsers joins name and email of the ordering user. Orders of deleted
// users keep a nil User.
func attachUsers(ctx context.Context, userRepo repository.UserRepository, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		if !seen[o.UserID] {
			seen[o.UserID] = true
			ids = append(ids, o.UserID)
		}
	}
	users, err := userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load order users: %w", err)
	}
	byID := make(map[uuid.UUID]*model.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = &model.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	for i := range orders {
		orders[i].User = byID[orders[i].UserID]
	}
	return nil
}
