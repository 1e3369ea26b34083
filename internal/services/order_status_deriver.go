package services

import domain "github.com/timi-123/shop-admin-sub000/internal/domain"

// DeriveOrderStatus computes the overall order status from vendor statuses. The checks run as a
// fixed priority cascade: all delivered, then any shipped, then any in production or ready to
// ship, then all cancelled, otherwise pending.
func DeriveOrderStatus(statuses []domain.VendorOrderStatus) domain.OrderStatus {
	if len(statuses) == 0 {
		return domain.OrderStatusPending
	}
	switch {
	case allStatuses(statuses, domain.VendorOrderStatusDelivered):
		return domain.OrderStatusDelivered
	case anyStatus(statuses, domain.VendorOrderStatusShipped):
		return domain.OrderStatusShipped
	case anyStatus(statuses, domain.VendorOrderStatusInProduction, domain.VendorOrderStatusReadyToShip):
		return domain.OrderStatusProcessing
	case allStatuses(statuses, domain.VendorOrderStatusCancelled):
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatusPending
	}
}

// DeriveCustomerSummary computes the one-line customer summary. It is independent of
// DeriveOrderStatus and the two may disagree for mixed status sets.
func DeriveCustomerSummary(statuses []domain.VendorOrderStatus) string {
	if len(statuses) == 0 {
		return "Processing your order"
	}
	switch {
	case allStatuses(statuses, domain.VendorOrderStatusDelivered):
		return "All items delivered"
	case anyStatus(statuses, domain.VendorOrderStatusShipped):
		return "Some items shipped"
	case anyStatus(statuses, domain.VendorOrderStatusReadyToShip):
		return "Items ready for delivery"
	case anyStatus(statuses, domain.VendorOrderStatusInProduction):
		return "Items in production"
	case allStatuses(statuses, domain.VendorOrderStatusOrderReceived):
		return "Orders confirmed by vendors"
	default:
		return "Processing your order"
	}
}

func allStatuses(statuses []domain.VendorOrderStatus, want domain.VendorOrderStatus) bool {
	for _, status := range statuses {
		if status != want {
			return false
		}
	}
	return len(statuses) > 0
}

func anyStatus(statuses []domain.VendorOrderStatus, want ...domain.VendorOrderStatus) bool {
	for _, status := range statuses {
		for _, candidate := range want {
			if status == candidate {
				return true
			}
		}
	}
	return false
}
