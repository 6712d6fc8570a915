package service

import (
	"context"
	"fmt"

	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
)

type AdminService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
}

func NewAdminService(productRepo repository.ProductRepository, orderRepo repository.OrderRepository, userRepo repository.UserRepository) *AdminService {
	return &AdminService{productRepo: productRepo, orderRepo: orderRepo, userRepo: userRepo}
}

// Stats runs each dashboard query on its own; the figures are not taken from
// a single snapshot.
func (s *AdminService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var (
		stats model.DashboardStats
		err   error
	)
	if stats.TotalUsers, err = s.userRepo.CountByRole(ctx, model.RoleUser); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if stats.TotalProducts, err = s.productRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if stats.TotalOrders, err = s.orderRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if stats.TotalRevenue, err = s.orderRepo.SumTotalByStatus(ctx, model.OrderStatusDelivered); err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	if stats.RecentOrders, err = s.orderRepo.ListRecent(ctx, model.RecentOrderLimit); err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	if err := attachUsers(ctx, s.userRepo, stats.RecentOrders); err != nil {
		return nil, err
	}
	if stats.OrdersByStatus, err = s.orderRepo.CountByStatus(ctx); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	if stats.LowStockProducts, err = s.LowStock(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

// LowStock lists the products below the low-stock threshold, lowest first.
func (s *AdminService) LowStock(ctx context.Context) ([]model.LowStockProduct, error) {
	products, err := s.productRepo.ListLowStock(ctx, model.LowStockThreshold, model.LowStockProductLimit)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	out := make([]model.LowStockProduct, 0, len(products))
	for _, p := range products {
		out = append(out, model.LowStockProduct{ID: p.ID, Name: p.Name, Brand: p.Brand, Stock: p.Stock})
	}
	return out, nil
}
