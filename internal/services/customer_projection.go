package services

import (
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// UnknownVendorName is shown to customers when a vendor has no display name on record.
const UnknownVendorName = "Unknown Vendor"

// CustomerOrderView is the read-only, customer-safe projection of an order. It carries no
// commission figures and no vendor identifiers.
type CustomerOrderView struct {
	OrderID            string
	Status             domain.OrderStatus
	StatusSummary      string
	PaymentStatus      string
	TotalAmount        decimal.Decimal
	ShippingAddress    domain.ShippingAddress
	CreatedAt          time.Time
	Vendors            []CustomerVendorView
	HasShippedItems    bool
	HasDeliveredItems  bool
	AllItemsDelivered  bool
	LatestStatusUpdate time.Time
}

// CustomerVendorView is one vendor's fulfillment as seen by the customer.
type CustomerVendorView struct {
	VendorName      string
	Status          domain.VendorOrderStatus
	CustomerMessage string
	LastUpdate      time.Time
	Tracking        *domain.TrackingInfo
	Products        []CustomerProductLine
}

// CustomerProductLine is a purchased product line without vendor references.
type CustomerProductLine struct {
	ProductID   string
	ProductName string
	Color       string
	Size        string
	Quantity    int
	Price       decimal.Decimal
}

// ProjectCustomerOrder builds the customer view. vendorNames maps vendor ids to display names;
// vendors missing from it are shown as UnknownVendorName. The result depends only on its inputs.
func ProjectCustomerOrder(order domain.Order, vendorNames map[string]string) CustomerOrderView {
	statuses := order.VendorStatuses()
	view := CustomerOrderView{
		OrderID:           order.ID,
		Status:            DeriveOrderStatus(statuses),
		StatusSummary:     DeriveCustomerSummary(statuses),
		PaymentStatus:     order.PaymentStatus,
		TotalAmount:       order.TotalAmount,
		ShippingAddress:   order.ShippingAddress,
		CreatedAt:         order.CreatedAt,
		HasShippedItems:   anyStatus(statuses, domain.VendorOrderStatusShipped),
		HasDeliveredItems: anyStatus(statuses, domain.VendorOrderStatusDelivered),
		AllItemsDelivered: allStatuses(statuses, domain.VendorOrderStatusDelivered),
	}

	for _, vendorID := range order.VendorIDs() {
		vendorOrder := order.VendorOrders[vendorID]
		name := vendorNames[vendorID]
		if name == "" {
			name = UnknownVendorName
		}

		products := make([]CustomerProductLine, 0, len(vendorOrder.Products))
		for _, item := range vendorOrder.Products {
			products = append(products, CustomerProductLine{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Color:       item.Color,
				Size:        item.Size,
				Quantity:    item.Quantity,
				Price:       item.PriceAtOrderTime,
			})
		}

		view.Vendors = append(view.Vendors, CustomerVendorView{
			VendorName:      name,
			Status:          vendorOrder.Status,
			CustomerMessage: vendorOrder.CustomerStatusMessage,
			LastUpdate:      vendorOrder.LastStatusUpdate,
			Tracking:        cloneTracking(vendorOrder.TrackingInfo),
			Products:        products,
		})

		if vendorOrder.LastStatusUpdate.After(view.LatestStatusUpdate) {
			view.LatestStatusUpdate = vendorOrder.LastStatusUpdate
		}
	}

	return view
}
