package services

import (
	"testing"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

const (
	received   = domain.VendorOrderStatusOrderReceived
	production = domain.VendorOrderStatusInProduction
	ready      = domain.VendorOrderStatusReadyToShip
	shipped    = domain.VendorOrderStatusShipped
	delivered  = domain.VendorOrderStatusDelivered
	cancelled  = domain.VendorOrderStatusCancelled
)

func TestDeriveOrderStatusCascade(t *testing.T) {
	cases := []struct {
		name     string
		statuses []domain.VendorOrderStatus
		want     domain.OrderStatus
	}{
		{"all delivered", []domain.VendorOrderStatus{delivered, delivered}, domain.OrderStatusDelivered},
		{"delivered and shipped", []domain.VendorOrderStatus{delivered, shipped}, domain.OrderStatusShipped},
		{"shipped outranks received", []domain.VendorOrderStatus{received, shipped, received}, domain.OrderStatusShipped},
		{"shipped outranks cancelled", []domain.VendorOrderStatus{cancelled, shipped}, domain.OrderStatusShipped},
		{"in production", []domain.VendorOrderStatus{received, production}, domain.OrderStatusProcessing},
		{"ready to ship", []domain.VendorOrderStatus{ready, cancelled}, domain.OrderStatusProcessing},
		{"all cancelled", []domain.VendorOrderStatus{cancelled, cancelled}, domain.OrderStatusCancelled},
		{"all received", []domain.VendorOrderStatus{received, received}, domain.OrderStatusPending},
		{"cancelled and received", []domain.VendorOrderStatus{cancelled, received}, domain.OrderStatusPending},
		{"delivered and cancelled", []domain.VendorOrderStatus{delivered, cancelled}, domain.OrderStatusPending},
		{"empty", nil, domain.OrderStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if got := DeriveOrderStatus(tc.statuses); got != tc.want {
					t.Fatalf("expected %s, got %s", tc.want, got)
				}
			}
		})
	}
}

func TestDeriveCustomerSummaryCascade(t *testing.T) {
	cases := []struct {
		statuses []domain.VendorOrderStatus
		want     string
	}{
		{[]domain.VendorOrderStatus{delivered, delivered}, "All items delivered"},
		{[]domain.VendorOrderStatus{delivered, shipped}, "Some items shipped"},
		{[]domain.VendorOrderStatus{production, ready}, "Items ready for delivery"},
		{[]domain.VendorOrderStatus{production, received}, "Items in production"},
		{[]domain.VendorOrderStatus{received, received}, "Orders confirmed by vendors"},
		{[]domain.VendorOrderStatus{cancelled, received}, "Processing your order"},
		{[]domain.VendorOrderStatus{cancelled, cancelled}, "Processing your order"},
	}

	for _, tc := range cases {
		if got := DeriveCustomerSummary(tc.statuses); got != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.statuses, tc.want, got)
		}
	}
}
