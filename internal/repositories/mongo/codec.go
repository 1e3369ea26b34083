package mongo

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// moneyCodec converts between decimal.Decimal and Decimal128 and keeps the first failure.
type moneyCodec struct {
	err error
}

func (c *moneyCodec) encode(field string, value decimal.Decimal) primitive.Decimal128 {
	out, err := primitive.ParseDecimal128(value.String())
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("encode %s: %w", field, err)
	}
	return out
}

func (c *moneyCodec) decode(field string, value primitive.Decimal128) decimal.Decimal {
	out, err := decimal.NewFromString(value.String())
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("decode %s: %w", field, err)
	}
	return out
}

func encodeOrder(order domain.Order) (orderDocument, error) {
	var codec moneyCodec
	doc := orderDocument{
		ID:            order.ID,
		CustomerID:    order.CustomerID,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		LineItems:     codec.encodeLineItems(order.LineItems),
		VendorOrders:  make(map[string]vendorOrderDocument, len(order.VendorOrders)),
		VendorIDs:     order.VendorIDs(),
		ShippingAddress: shippingAddressDocument{
			FullName:   order.ShippingAddress.FullName,
			Address:    order.ShippingAddress.Address,
			City:       order.ShippingAddress.City,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
			Phone:      order.ShippingAddress.Phone,
		},
		TotalAmount:   codec.encode("totalAmount", order.TotalAmount),
		PlatformFee:   codec.encode("platformFee", order.PlatformFee),
		Status:        string(order.Status),
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	for vendorID, vo := range order.VendorOrders {
		doc.VendorOrders[vendorID] = codec.encodeVendorOrder(vo)
	}
	if codec.err != nil {
		return orderDocument{}, fmt.Errorf("order %s: %w", order.ID, codec.err)
	}
	return doc, nil
}

func encodeVendorOrder(vo domain.VendorOrder) (vendorOrderDocument, error) {
	var codec moneyCodec
	doc := codec.encodeVendorOrder(vo)
	if codec.err != nil {
		return vendorOrderDocument{}, fmt.Errorf("vendor order %s: %w", vo.VendorID, codec.err)
	}
	return doc, nil
}

func (c *moneyCodec) encodeLineItems(items []domain.LineItem) []lineItemDocument {
	out := make([]lineItemDocument, 0, len(items))
	for _, item := range items {
		out = append(out, lineItemDocument{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			VendorID:         item.VendorID,
			Color:            item.Color,
			Size:             item.Size,
			Quantity:         item.Quantity,
			PriceAtOrderTime: c.encode("priceAtOrderTime", item.PriceAtOrderTime),
		})
	}
	return out
}

func (c *moneyCodec) encodeVendorOrder(vo domain.VendorOrder) vendorOrderDocument {
	doc := vendorOrderDocument{
		VendorID:              vo.VendorID,
		Products:              c.encodeLineItems(vo.Products),
		Subtotal:              c.encode("subtotal", vo.Subtotal),
		Commission:            c.encode("commission", vo.Commission),
		VendorEarnings:        c.encode("vendorEarnings", vo.VendorEarnings),
		Status:                string(vo.Status),
		CustomerStatusMessage: vo.CustomerStatusMessage,
		StatusHistory:         make([]statusHistoryDocument, 0, len(vo.StatusHistory)),
		LastStatusUpdate:      vo.LastStatusUpdate.UTC(),
	}
	for _, entry := range vo.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, statusHistoryDocument{
			Status:          string(entry.Status),
			UpdatedAt:       entry.UpdatedAt.UTC(),
			UpdatedBy:       entry.UpdatedBy,
			CustomerMessage: entry.CustomerMessage,
		})
	}
	if vo.TrackingInfo != nil {
		doc.TrackingInfo = &trackingInfoDocument{
			TrackingNumber:    vo.TrackingInfo.TrackingNumber,
			Carrier:           vo.TrackingInfo.Carrier,
			EstimatedDelivery: vo.TrackingInfo.EstimatedDelivery,
		}
	}
	return doc
}

func decodeOrder(doc orderDocument) (domain.Order, error) {
	var codec moneyCodec
	order := domain.Order{
		ID:             doc.ID,
		CustomerID:     doc.CustomerID,
		CustomerEmail:  doc.CustomerEmail,
		CustomerName:   doc.CustomerName,
		LineItems:      codec.decodeLineItems(doc.LineItems),
		VendorOrders:   make(map[string]domain.VendorOrder, len(doc.VendorOrders)),
		VendorSequence: append([]string(nil), doc.VendorIDs...),
		ShippingAddress: domain.ShippingAddress{
			FullName:   doc.ShippingAddress.FullName,
			Address:    doc.ShippingAddress.Address,
			City:       doc.ShippingAddress.City,
			PostalCode: doc.ShippingAddress.PostalCode,
			Country:    doc.ShippingAddress.Country,
			Phone:      doc.ShippingAddress.Phone,
		},
		TotalAmount:   codec.decode("totalAmount", doc.TotalAmount),
		PlatformFee:   codec.decode("platformFee", doc.PlatformFee),
		Status:        domain.OrderStatus(doc.Status),
		PaymentStatus: doc.PaymentStatus,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}
	for vendorID, vo := range doc.VendorOrders {
		order.VendorOrders[vendorID] = codec.decodeVendorOrder(vendorID, vo)
	}
	if codec.err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", doc.ID, codec.err)
	}
	return order, nil
}

func (c *moneyCodec) decodeLineItems(docs []lineItemDocument) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.LineItem{
			ProductID:        doc.ProductID,
			ProductName:      doc.ProductName,
			VendorID:         doc.VendorID,
			Color:            doc.Color,
			Size:             doc.Size,
			Quantity:         doc.Quantity,
			PriceAtOrderTime: c.decode("priceAtOrderTime", doc.PriceAtOrderTime),
		})
	}
	return out
}

func (c *moneyCodec) decodeVendorOrder(vendorID string, doc vendorOrderDocument) domain.VendorOrder {
	vo := domain.VendorOrder{
		VendorID:              vendorID,
		Products:              c.decodeLineItems(doc.Products),
		Subtotal:              c.decode("subtotal", doc.Subtotal),
		Commission:            c.decode("commission", doc.Commission),
		VendorEarnings:        c.decode("vendorEarnings", doc.VendorEarnings),
		Status:                domain.VendorOrderStatus(doc.Status),
		CustomerStatusMessage: doc.CustomerStatusMessage,
		StatusHistory:         make([]domain.StatusHistoryEntry, 0, len(doc.StatusHistory)),
		LastStatusUpdate:      doc.LastStatusUpdate.UTC(),
	}
	for _, entry := range doc.StatusHistory {
		vo.StatusHistory = append(vo.StatusHistory, domain.StatusHistoryEntry{
			Status:          domain.VendorOrderStatus(entry.Status),
			UpdatedAt:       entry.UpdatedAt.UTC(),
			UpdatedBy:       entry.UpdatedBy,
			CustomerMessage: entry.CustomerMessage,
		})
	}
	if doc.TrackingInfo != nil {
		vo.TrackingInfo = &domain.TrackingInfo{
			TrackingNumber:    doc.TrackingInfo.TrackingNumber,
			Carrier:           doc.TrackingInfo.Carrier,
			EstimatedDelivery: doc.TrackingInfo.EstimatedDelivery,
		}
	}
	return vo
}
