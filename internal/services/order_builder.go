package services

import (
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// systemActor is recorded as the author of the initial history entry of every vendor order.
const systemActor = "system"

// OrderDraft carries everything needed to assemble a new order aggregate.
type OrderDraft struct {
	OrderID       string
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	Shipping      domain.ShippingAddress
	TotalAmount   decimal.Decimal
	PaymentStatus string
	Split         CartSplit
	Commission    CommissionCalculator
	CreatedAt     time.Time
}

// BuildOrder assembles the order with one vendor order per vendor group. Each vendor order
// starts at order_received with a synthetic history entry stamped at creation time.
func BuildOrder(draft OrderDraft) domain.Order {
	initialStatus := domain.VendorOrderStatusOrderReceived
	initialMessage := CustomerMessageFor(initialStatus)

	vendorOrders := make(map[string]domain.VendorOrder, len(draft.Split.Groups))
	sequence := make([]string, 0, len(draft.Split.Groups))
	for _, group := range draft.Split.Groups {
		share := draft.Commission.Share(group.Subtotal)
		products := make([]domain.LineItem, len(group.Lines))
		copy(products, group.Lines)

		vendorOrders[group.VendorID] = domain.VendorOrder{
			VendorID:              group.VendorID,
			Products:              products,
			Subtotal:              share.Subtotal,
			Commission:            share.Commission,
			VendorEarnings:        share.VendorEarnings,
			Status:                initialStatus,
			CustomerStatusMessage: initialMessage,
			StatusHistory: []domain.StatusHistoryEntry{{
				Status:          initialStatus,
				UpdatedAt:       draft.CreatedAt,
				UpdatedBy:       systemActor,
				CustomerMessage: initialMessage,
			}},
			LastStatusUpdate: draft.CreatedAt,
		}
		sequence = append(sequence, group.VendorID)
	}

	lineItems := make([]domain.LineItem, len(draft.Split.LineItems))
	copy(lineItems, draft.Split.LineItems)

	paymentStatus := draft.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = domain.PaymentStatusPending
	}

	order := domain.Order{
		ID:              draft.OrderID,
		CustomerID:      draft.CustomerID,
		CustomerEmail:   draft.CustomerEmail,
		CustomerName:    draft.CustomerName,
		LineItems:       lineItems,
		VendorOrders:    vendorOrders,
		VendorSequence:  sequence,
		ShippingAddress: draft.Shipping,
		TotalAmount:     draft.TotalAmount,
		PlatformFee:     PlatformFee(vendorOrders),
		PaymentStatus:   paymentStatus,
		CreatedAt:       draft.CreatedAt,
		UpdatedAt:       draft.CreatedAt,
	}
	order.Status = DeriveOrderStatus(order.VendorStatuses())
	return order
}
