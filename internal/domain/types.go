package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// Page wraps a slice of results with the token for the next page.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}

// Order is the root aggregate created for one customer checkout.
type Order struct {
	ID              string
	CustomerID      string
	CustomerEmail   string
	CustomerName    string
	LineItems       []LineItem
	VendorOrders    map[string]VendorOrder
	VendorSequence  []string
	ShippingAddress ShippingAddress
	TotalAmount     decimal.Decimal
	PlatformFee     decimal.Decimal
	Status          OrderStatus
	PaymentStatus   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VendorIDs returns the vendors of the order in checkout order.
func (o Order) VendorIDs() []string {
	if len(o.VendorSequence) == len(o.VendorOrders) {
		out := make([]string, len(o.VendorSequence))
		copy(out, o.VendorSequence)
		return out
	}
	seen := make(map[string]struct{}, len(o.VendorOrders))
	out := make([]string, 0, len(o.VendorOrders))
	for _, item := range o.LineItems {
		if _, ok := o.VendorOrders[item.VendorID]; !ok {
			continue
		}
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		out = append(out, item.VendorID)
	}
	return out
}

// VendorStatuses collects the current fulfillment status of every vendor order.
func (o Order) VendorStatuses() []VendorOrderStatus {
	statuses := make([]VendorOrderStatus, 0, len(o.VendorOrders))
	for _, vendorID := range o.VendorIDs() {
		statuses = append(statuses, o.VendorOrders[vendorID].Status)
	}
	return statuses
}

// LineItem is a denormalised copy of one purchased cart line.
type LineItem struct {
	ProductID        string
	ProductName      string
	VendorID         string
	Color            string
	Size             string
	Quantity         int
	PriceAtOrderTime decimal.Decimal
}

// LineTotal returns price multiplied by quantity without rounding.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.PriceAtOrderTime.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// VendorOrder is the per-vendor fulfillment sub-aggregate embedded in an Order.
type VendorOrder struct {
	VendorID              string
	Products              []LineItem
	Subtotal              decimal.Decimal
	Commission            decimal.Decimal
	VendorEarnings        decimal.Decimal
	Status                VendorOrderStatus
	CustomerStatusMessage string
	StatusHistory         []StatusHistoryEntry
	TrackingInfo          *TrackingInfo
	LastStatusUpdate      time.Time
}

// StatusHistoryEntry records one applied transition.
type StatusHistoryEntry struct {
	Status          VendorOrderStatus
	UpdatedAt       time.Time
	UpdatedBy       string
	CustomerMessage string
}

// TrackingInfo carries shipment details supplied by the vendor.
type TrackingInfo struct {
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *time.Time
}

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	FullName   string
	Address    string
	City       string
	PostalCode string
	Country    string
	Phone      string
}

// CartLine is one line of a checkout cart before catalog resolution.
type CartLine struct {
	ProductID string
	Color     string
	Size      string
	Quantity  int
}

// ProductSnapshot is the catalog state of a product at checkout time.
type ProductSnapshot struct {
	ProductID string
	Name      string
	VendorID  string
	Price     decimal.Decimal
}

// Vendor holds the fields of a vendor profile this service reads.
type Vendor struct {
	ID          string
	DisplayName string
}
