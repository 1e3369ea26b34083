package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// OrderService coordinates checkout splitting and per-vendor fulfillment updates.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	UpdateVendorOrderStatus(ctx context.Context, cmd UpdateVendorOrderStatusCommand) (VendorOrderTransitionResult, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetCustomerOrder(ctx context.Context, query CustomerOrderQuery) (CustomerOrderView, error)
	ListVendorOrders(ctx context.Context, filter VendorOrderListFilter) (domain.Page[VendorOrderSummary], error)
}

// SystemService exposes readiness information.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// CreateOrderCommand is the checkout input.
type CreateOrderCommand struct {
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	CartItems     []domain.CartLine
	Shipping      domain.ShippingAddress
	TotalAmount   decimal.Decimal
	PaymentStatus string
	ActorID       string
}

// UpdateVendorOrderStatusCommand moves one vendor order to a new status.
//
// Authorized carries the caller's ownership fact: true when the caller is the vendor named by
// VendorID or an administrator.
type UpdateVendorOrderStatusCommand struct {
	OrderID           string
	VendorID          string
	Status            string
	TrackingNumber    *string
	Carrier           *string
	EstimatedDelivery *time.Time
	CustomMessage     *string
	ActorID           string
	Authorized        bool
}

// VendorOrderTransitionResult returns the updated vendor order with the recomputed order status.
type VendorOrderTransitionResult struct {
	OrderID         string
	VendorOrder     domain.VendorOrder
	OrderStatus     domain.OrderStatus
	CustomerSummary string
}

// CustomerOrderQuery reads the customer projection of an order.
type CustomerOrderQuery struct {
	OrderID    string
	CustomerID string
	// AnyCustomer skips the ownership check, for administrators.
	AnyCustomer bool
}

// VendorOrderListFilter lists orders for one vendor.
type VendorOrderListFilter struct {
	VendorID   string
	Pagination domain.Pagination
}

// VendorOrderSummary is one vendor's slice of an order as shown on the vendor dashboard.
type VendorOrderSummary struct {
	OrderID         string
	CreatedAt       time.Time
	OrderStatus     domain.OrderStatus
	ShippingAddress domain.ShippingAddress
	VendorOrder     domain.VendorOrder
}
