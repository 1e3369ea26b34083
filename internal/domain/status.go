package domain

// VendorOrderStatus is the fulfillment state of one vendor's sub-order.
type VendorOrderStatus string

const (
	VendorOrderStatusOrderReceived VendorOrderStatus = "order_received"
	VendorOrderStatusInProduction  VendorOrderStatus = "in_production"
	VendorOrderStatusReadyToShip   VendorOrderStatus = "ready_to_ship"
	VendorOrderStatusShipped       VendorOrderStatus = "shipped"
	VendorOrderStatusDelivered     VendorOrderStatus = "delivered"
	VendorOrderStatusCancelled     VendorOrderStatus = "cancelled"
)

var vendorOrderStatuses = []VendorOrderStatus{
	VendorOrderStatusOrderReceived,
	VendorOrderStatusInProduction,
	VendorOrderStatusReadyToShip,
	VendorOrderStatusShipped,
	VendorOrderStatusDelivered,
	VendorOrderStatusCancelled,
}

// VendorOrderStatuses lists the fulfillment vocabulary in nominal forward order.
func VendorOrderStatuses() []VendorOrderStatus {
	out := make([]VendorOrderStatus, len(vendorOrderStatuses))
	copy(out, vendorOrderStatuses)
	return out
}

// Valid reports whether the status belongs to the fixed vocabulary. Matching is case-sensitive.
func (s VendorOrderStatus) Valid() bool {
	for _, candidate := range vendorOrderStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// OrderStatus is the overall status derived from all vendor orders.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatusPending is recorded when checkout does not supply a payment status.
const PaymentStatusPending = "pending"
