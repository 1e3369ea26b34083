package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	pfirestore "github.com/timi-123/shop-admin-sub000/internal/platform/firestore"
	"github.com/timi-123/shop-admin-sub000/internal/platform/pagination"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

const defaultOrdersCollection = "orders"

// OrderRepository stores orders as single documents with vendor orders embedded
// in a map keyed by vendor id.
type OrderRepository struct {
	provider   *pfirestore.Provider
	collection string
	attempts   int
	onConflict repositories.WriteConflictObserver
}

// OrderRepositoryOption customises the repository.
type OrderRepositoryOption func(*OrderRepository)

// WithOrdersCollection overrides the collection name.
func WithOrdersCollection(name string) OrderRepositoryOption {
	return func(r *OrderRepository) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			r.collection = trimmed
		}
	}
}

// WithMaxWriteAttempts bounds the transaction retries of MutateVendorOrder.
func WithMaxWriteAttempts(attempts int) OrderRepositoryOption {
	return func(r *OrderRepository) {
		if attempts > 0 {
			r.attempts = attempts
		}
	}
}

// WithConflictObserver registers a callback for contended writes.
func WithConflictObserver(fn repositories.WriteConflictObserver) OrderRepositoryOption {
	return func(r *OrderRepository) {
		r.onConflict = fn
	}
}

func NewOrderRepository(provider *pfirestore.Provider, opts ...OrderRepositoryOption) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	repo := &OrderRepository{provider: provider, collection: defaultOrdersCollection, attempts: 5}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	ref, err := r.docRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, encodeOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	ref, err := r.docRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.get", err)
	}
	return decodeOrderSnapshot(snap)
}

// MutateVendorOrder reads the order inside a transaction, applies mutate and
// writes back the addressed vendor order with the recomputed order status.
// Concurrent updates to other vendors' entries abort the transaction, which
// Firestore retries up to the configured attempt limit.
func (r *OrderRepository) MutateVendorOrder(ctx context.Context, orderID, vendorID string, mutate repositories.OrderMutation) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if mutate == nil {
		return domain.Order{}, errors.New("order repository: mutation is required")
	}
	ref, err := r.docRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		order, err := decodeOrderSnapshot(snap)
		if err != nil {
			return err
		}
		if err := mutate(&order); err != nil {
			return err
		}
		vendorOrder, ok := order.VendorOrders[vendorID]
		if !ok {
			return repositories.NewStoreError("orders.mutate", repositories.StoreErrorNotFound, fmt.Errorf("vendor order %s missing after mutation", vendorID))
		}

		if err := tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"vendorOrders", vendorID}, Value: encodeVendorOrder(vendorOrder)},
			{Path: "status", Value: string(order.Status)},
			{Path: "updatedAt", Value: order.UpdatedAt.UTC()},
		}); err != nil {
			return err
		}
		result = order
		return nil
	}, pfirestore.WithTxAttempts(r.attempts), pfirestore.WithTxRetryObserver(func(attempt int) {
		if r.onConflict != nil {
			r.onConflict(ctx, orderID, vendorID, attempt)
		}
	}))
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (r *OrderRepository) ListByVendor(ctx context.Context, filter repositories.VendorOrderListFilter) (domain.Page[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.Page[domain.Order]{}, errors.New("order repository not initialised")
	}
	vendorID := strings.TrimSpace(filter.VendorID)
	if vendorID == "" {
		return domain.Page[domain.Order]{}, errors.New("order repository: vendor id is required")
	}
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = 20
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Page[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}
	q := client.Collection(r.collection).
		Where("vendorIds", "array-contains", vendorID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if cursor.OrderID != "" {
		q = q.StartAfter(cursor.CreatedAt, cursor.OrderID)
	}
	snaps, err := q.Limit(limit + 1).Documents(ctx).GetAll()
	if err != nil {
		return domain.Page[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	nextToken := ""
	if len(snaps) > limit {
		snaps = snaps[:limit]
		last := snaps[len(snaps)-1]
		createdAt, _ := last.DataAt("createdAt")
		if ts, ok := createdAt.(time.Time); ok {
			nextToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: ts, OrderID: last.Ref.ID})
		}
	}

	items := make([]domain.Order, 0, len(snaps))
	for _, snap := range snaps {
		order, err := decodeOrderSnapshot(snap)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		items = append(items, order)
	}
	return domain.Page[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

func (r *OrderRepository) docRef(ctx context.Context, orderID string) (*firestore.DocumentRef, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("order repository: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("orders.client", err)
	}
	return client.Collection(r.collection).Doc(orderID), nil
}

type orderDocument struct {
	CustomerID      string                         `firestore:"customerId"`
	CustomerEmail   string                         `firestore:"customerEmail"`
	CustomerName    string                         `firestore:"customerName"`
	LineItems       []lineItemDocument             `firestore:"lineItems"`
	VendorOrders    map[string]vendorOrderDocument `firestore:"vendorOrders"`
	VendorIDs       []string                       `firestore:"vendorIds"`
	ShippingAddress shippingAddressDocument        `firestore:"shippingAddress"`
	TotalAmount     string                         `firestore:"totalAmount"`
	PlatformFee     string                         `firestore:"platformFee"`
	Status          string                         `firestore:"status"`
	PaymentStatus   string                         `firestore:"paymentStatus"`
	CreatedAt       time.Time                      `firestore:"createdAt"`
	UpdatedAt       time.Time                      `firestore:"updatedAt"`
}

type lineItemDocument struct {
	ProductID        string `firestore:"productId"`
	ProductName      string `firestore:"productName"`
	VendorID         string `firestore:"vendorId"`
	Color            string `firestore:"color"`
	Size             string `firestore:"size"`
	Quantity         int    `firestore:"quantity"`
	PriceAtOrderTime string `firestore:"priceAtOrderTime"`
}

type vendorOrderDocument struct {
	VendorID              string                  `firestore:"vendorId"`
	Products              []lineItemDocument      `firestore:"products"`
	Subtotal              string                  `firestore:"subtotal"`
	Commission            string                  `firestore:"commission"`
	VendorEarnings        string                  `firestore:"vendorEarnings"`
	Status                string                  `firestore:"status"`
	CustomerStatusMessage string                  `firestore:"customerStatusMessage"`
	StatusHistory         []statusHistoryDocument `firestore:"statusHistory"`
	TrackingInfo          *trackingInfoDocument   `firestore:"trackingInfo,omitempty"`
	LastStatusUpdate      time.Time               `firestore:"lastStatusUpdate"`
}

type statusHistoryDocument struct {
	Status          string    `firestore:"status"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
	UpdatedBy       string    `firestore:"updatedBy"`
	CustomerMessage string    `firestore:"customerMessage"`
}

type trackingInfoDocument struct {
	TrackingNumber    string     `firestore:"trackingNumber"`
	Carrier           string     `firestore:"carrier"`
	EstimatedDelivery *time.Time `firestore:"estimatedDelivery,omitempty"`
}

type shippingAddressDocument struct {
	FullName   string `firestore:"fullName"`
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
	Phone      string `firestore:"phone"`
}

func encodeOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		CustomerID:    order.CustomerID,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		LineItems:     encodeLineItems(order.LineItems),
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
		TotalAmount:   order.TotalAmount.String(),
		PlatformFee:   order.PlatformFee.String(),
		Status:        string(order.Status),
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	for vendorID, vendorOrder := range order.VendorOrders {
		doc.VendorOrders[vendorID] = encodeVendorOrder(vendorOrder)
	}
	return doc
}

func encodeLineItems(items []domain.LineItem) []lineItemDocument {
	out := make([]lineItemDocument, 0, len(items))
	for _, item := range items {
		out = append(out, lineItemDocument{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			VendorID:         item.VendorID,
			Color:            item.Color,
			Size:             item.Size,
			Quantity:         item.Quantity,
			PriceAtOrderTime: item.PriceAtOrderTime.String(),
		})
	}
	return out
}

func encodeVendorOrder(vo domain.VendorOrder) vendorOrderDocument {
	doc := vendorOrderDocument{
		VendorID:              vo.VendorID,
		Products:              encodeLineItems(vo.Products),
		Subtotal:              vo.Subtotal.String(),
		Commission:            vo.Commission.String(),
		VendorEarnings:        vo.VendorEarnings.String(),
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

func decodeOrderSnapshot(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	if snap == nil || !snap.Exists() {
		return domain.Order{}, pfirestore.WrapError("orders.decode", status.Error(codes.NotFound, "order not found"))
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	return decodeOrder(snap.Ref.ID, doc)
}

func decodeOrder(id string, doc orderDocument) (domain.Order, error) {
	var dec moneyDecoder
	order := domain.Order{
		ID:             id,
		CustomerID:     doc.CustomerID,
		CustomerEmail:  doc.CustomerEmail,
		CustomerName:   doc.CustomerName,
		LineItems:      dec.lineItems(doc.LineItems),
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
		TotalAmount:   dec.amount("totalAmount", doc.TotalAmount),
		PlatformFee:   dec.amount("platformFee", doc.PlatformFee),
		Status:        domain.OrderStatus(doc.Status),
		PaymentStatus: doc.PaymentStatus,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}
	for vendorID, vo := range doc.VendorOrders {
		order.VendorOrders[vendorID] = dec.vendorOrder(vendorID, vo)
	}
	if dec.err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", id, dec.err)
	}
	return order, nil
}

// moneyDecoder parses decimal strings and keeps the first failure.
type moneyDecoder struct {
	err error
}

func (d *moneyDecoder) amount(field, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%s: %w", field, err)
	}
	return value
}

func (d *moneyDecoder) lineItems(docs []lineItemDocument) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.LineItem{
			ProductID:        doc.ProductID,
			ProductName:      doc.ProductName,
			VendorID:         doc.VendorID,
			Color:            doc.Color,
			Size:             doc.Size,
			Quantity:         doc.Quantity,
			PriceAtOrderTime: d.amount("priceAtOrderTime", doc.PriceAtOrderTime),
		})
	}
	return out
}

func (d *moneyDecoder) vendorOrder(vendorID string, doc vendorOrderDocument) domain.VendorOrder {
	vo := domain.VendorOrder{
		VendorID:              vendorID,
		Products:              d.lineItems(doc.Products),
		Subtotal:              d.amount("subtotal", doc.Subtotal),
		Commission:            d.amount("commission", doc.Commission),
		VendorEarnings:        d.amount("vendorEarnings", doc.VendorEarnings),
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
