package services

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

var vendorOrderStatusMessages = map[domain.VendorOrderStatus]string{
	domain.VendorOrderStatusOrderReceived: "Your order has been received by the vendor",
	domain.VendorOrderStatusInProduction:  "Your items are being prepared",
	domain.VendorOrderStatusReadyToShip:   "Your items are packed and ready to ship",
	domain.VendorOrderStatusShipped:       "Your items are on the way",
	domain.VendorOrderStatusDelivered:     "Your items have been delivered",
	domain.VendorOrderStatusCancelled:     "This part of your order has been cancelled",
}

// CustomerMessageFor returns the fixed customer-facing message for a vendor order status.
func CustomerMessageFor(status domain.VendorOrderStatus) string {
	return vendorOrderStatusMessages[status]
}

// ParseVendorOrderStatus validates a wire status against the fixed vocabulary. Matching is exact.
func ParseVendorOrderStatus(raw string) (domain.VendorOrderStatus, error) {
	status := domain.VendorOrderStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// VendorOrderTransition describes one requested status change.
type VendorOrderTransition struct {
	Status            domain.VendorOrderStatus
	TrackingNumber    *string
	Carrier           *string
	EstimatedDelivery *time.Time
	CustomMessage     *string
	UpdatedBy         string
	At                time.Time
}

// ApplyVendorOrderTransition moves the vendor order to the requested status and recomputes the
// order status. Any status may follow any other, including itself; only membership in the
// vocabulary is checked. Tracking details are merged only when moving to shipped and are never
// cleared. On error the order is left untouched.
func ApplyVendorOrderTransition(order *domain.Order, vendorID string, transition VendorOrderTransition) (domain.VendorOrder, error) {
	if order == nil {
		return domain.VendorOrder{}, fmt.Errorf("%w: order is required", ErrOrderInvalidInput)
	}
	if !transition.Status.Valid() {
		return domain.VendorOrder{}, fmt.Errorf("%w: %q", ErrInvalidStatus, transition.Status)
	}
	current, ok := order.VendorOrders[vendorID]
	if !ok {
		return domain.VendorOrder{}, fmt.Errorf("%w: vendor %s on order %s", ErrVendorOrderNotFound, vendorID, order.ID)
	}

	message := CustomerMessageFor(transition.Status)
	if transition.CustomMessage != nil {
		if custom := strings.TrimSpace(*transition.CustomMessage); custom != "" {
			message = custom
		}
	}

	next := current
	next.Status = transition.Status
	next.CustomerStatusMessage = message
	next.LastStatusUpdate = transition.At

	history := make([]domain.StatusHistoryEntry, len(current.StatusHistory), len(current.StatusHistory)+1)
	copy(history, current.StatusHistory)
	next.StatusHistory = append(history, domain.StatusHistoryEntry{
		Status:          transition.Status,
		UpdatedAt:       transition.At,
		UpdatedBy:       transition.UpdatedBy,
		CustomerMessage: message,
	})

	if transition.Status == domain.VendorOrderStatusShipped {
		next.TrackingInfo = mergeTracking(current.TrackingInfo, transition)
	}

	vendorOrders := make(map[string]domain.VendorOrder, len(order.VendorOrders))
	for id, vendorOrder := range order.VendorOrders {
		vendorOrders[id] = vendorOrder
	}
	vendorOrders[vendorID] = next
	order.VendorOrders = vendorOrders
	order.Status = DeriveOrderStatus(order.VendorStatuses())
	order.UpdatedAt = transition.At

	return next, nil
}

func mergeTracking(existing *domain.TrackingInfo, transition VendorOrderTransition) *domain.TrackingInfo {
	number := trimmedValue(transition.TrackingNumber)
	carrier := trimmedValue(transition.Carrier)
	if number == "" && carrier == "" && transition.EstimatedDelivery == nil {
		return cloneTracking(existing)
	}

	merged := domain.TrackingInfo{}
	if existing != nil {
		merged = *cloneTracking(existing)
	}
	if number != "" {
		merged.TrackingNumber = number
	}
	if carrier != "" {
		merged.Carrier = carrier
	}
	if transition.EstimatedDelivery != nil {
		eta := transition.EstimatedDelivery.UTC()
		merged.EstimatedDelivery = &eta
	}
	return &merged
}

func cloneTracking(info *domain.TrackingInfo) *domain.TrackingInfo {
	if info == nil {
		return nil
	}
	copied := *info
	if info.EstimatedDelivery != nil {
		eta := *info.EstimatedDelivery
		copied.EstimatedDelivery = &eta
	}
	return &copied
}

func trimmedValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
