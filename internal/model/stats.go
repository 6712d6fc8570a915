package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LowStockThreshold    = 5
	LowStockProductLimit = 10
	RecentOrderLimit     = 5
)

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

type LowStockProduct struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Brand string    `json:"brand"`
	Stock int       `json:"stock"`
}

type DashboardStats struct {
	TotalUsers       int64
	TotalProducts    int64
	TotalOrders      int64
	TotalRevenue     decimal.Decimal
	RecentOrders     []Order
	OrdersByStatus   []StatusCount
	LowStockProducts []LowStockProduct
}
