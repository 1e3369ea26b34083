package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/platform/pagination"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

const (
	defaultCollection  = "orders"
	defaultMaxAttempts = 5
)

// OrderRepository keeps orders in a MongoDB collection. Vendor order updates are
// guarded by a version field that every write increments.
type OrderRepository struct {
	collection *mongo.Collection
	attempts   int
	onConflict repositories.WriteConflictObserver
}

// Option customises the repository.
type Option func(*OrderRepository)

// WithMaxWriteAttempts bounds how often a losing mutation is re-applied.
func WithMaxWriteAttempts(attempts int) Option {
	return func(r *OrderRepository) {
		if attempts > 0 {
			r.attempts = attempts
		}
	}
}

// WithConflictObserver registers a callback for contended writes.
func WithConflictObserver(fn repositories.WriteConflictObserver) Option {
	return func(r *OrderRepository) {
		r.onConflict = fn
	}
}

// NewOrderRepository binds the repository to database/collection on the given client.
func NewOrderRepository(client *mongo.Client, database, collection string, opts ...Option) (*OrderRepository, error) {
	if client == nil {
		return nil, errors.New("mongo order repository requires client")
	}
	if strings.TrimSpace(database) == "" {
		return nil, errors.New("mongo order repository requires database name")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultCollection
	}
	repo := &OrderRepository{
		collection: client.Database(database).Collection(collection),
		attempts:   defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// EnsureIndexes creates the index backing vendor listings.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "vendorIds", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("vendor_listing"),
	})
	return wrapError("orders.indexes", err)
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("mongo order repository: order id is required")
	}
	doc, err := encodeOrder(order)
	if err != nil {
		return err
	}
	doc.Version = 1
	_, err = r.collection.InsertOne(ctx, doc)
	return wrapError("orders.insert", err)
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.find(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc)
}

func (r *OrderRepository) MutateVendorOrder(ctx context.Context, orderID, vendorID string, mutate repositories.OrderMutation) (domain.Order, error) {
	if mutate == nil {
		return domain.Order{}, errors.New("mongo order repository: mutation is required")
	}
	if strings.ContainsAny(vendorID, ".$") || strings.TrimSpace(vendorID) == "" {
		return domain.Order{}, repositories.NewStoreError("orders.mutate", repositories.StoreErrorNotFound, fmt.Errorf("vendor id %q cannot address a vendor order", vendorID))
	}

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 && r.onConflict != nil {
			r.onConflict(ctx, orderID, vendorID, attempt)
		}

		doc, err := r.find(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}
		order, err := decodeOrder(doc)
		if err != nil {
			return domain.Order{}, err
		}
		if err := mutate(&order); err != nil {
			return domain.Order{}, err
		}
		vendorOrder, ok := order.VendorOrders[vendorID]
		if !ok {
			return domain.Order{}, repositories.NewStoreError("orders.mutate", repositories.StoreErrorNotFound, fmt.Errorf("vendor order %s missing after mutation", vendorID))
		}
		encoded, err := encodeVendorOrder(vendorOrder)
		if err != nil {
			return domain.Order{}, err
		}

		res, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "version": doc.Version},
			vendorOrderUpdate(vendorID, doc.VendorOrders[vendorID], encoded, order),
		)
		if err != nil {
			return domain.Order{}, wrapError("orders.mutate", err)
		}
		if res.MatchedCount == 1 {
			return order, nil
		}
	}

	return domain.Order{}, repositories.NewStoreError("orders.mutate", repositories.StoreErrorConflict,
		fmt.Errorf("order %s vendor %s: gave up after %d attempts", orderID, vendorID, r.attempts))
}

// vendorOrderUpdate scopes the write to one vendor's subtree. New history entries are appended
// with $push; the whole history is replaced only when the stored prefix was rewritten.
func vendorOrderUpdate(vendorID string, before, after vendorOrderDocument, order domain.Order) bson.M {
	prefix := "vendorOrders." + vendorID + "."
	set := bson.M{
		prefix + "status":                string(after.Status),
		prefix + "customerStatusMessage": after.CustomerStatusMessage,
		prefix + "lastStatusUpdate":      after.LastStatusUpdate,
		"status":                         string(order.Status),
		"updatedAt":                      order.UpdatedAt.UTC(),
	}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if after.TrackingInfo != nil {
		set[prefix+"trackingInfo"] = after.TrackingInfo
	} else if before.TrackingInfo != nil {
		update["$unset"] = bson.M{prefix + "trackingInfo": ""}
	}

	if !historyExtends(before.StatusHistory, after.StatusHistory) {
		set[prefix+"statusHistory"] = after.StatusHistory
		return update
	}
	if appended := after.StatusHistory[len(before.StatusHistory):]; len(appended) > 0 {
		update["$push"] = bson.M{prefix + "statusHistory": bson.M{"$each": appended}}
	}
	return update
}

func historyExtends(before, after []statusHistoryDocument) bool {
	if len(after) < len(before) {
		return false
	}
	for i, entry := range before {
		next := after[i]
		if entry.Status != next.Status || entry.UpdatedBy != next.UpdatedBy ||
			entry.CustomerMessage != next.CustomerMessage || !entry.UpdatedAt.Equal(next.UpdatedAt) {
			return false
		}
	}
	return true
}

func (r *OrderRepository) ListByVendor(ctx context.Context, filter repositories.VendorOrderListFilter) (domain.Page[domain.Order], error) {
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = 20
	}

	query := bson.M{"vendorIds": filter.VendorID}
	if cursor.OrderID != "" {
		createdAt := cursor.CreatedAt.UTC()
		query["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": createdAt}},
			bson.M{"createdAt": createdAt, "_id": bson.M{"$lt": cursor.OrderID}},
		}
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))

	cur, err := r.collection.Find(ctx, query, findOpts)
	if err != nil {
		return domain.Page[domain.Order]{}, wrapError("orders.list", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return domain.Page[domain.Order]{}, wrapError("orders.list", err)
	}

	nextToken := ""
	if len(docs) > limit {
		docs = docs[:limit]
		last := docs[len(docs)-1]
		nextToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, OrderID: last.ID})
	}
	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := decodeOrder(doc)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		items = append(items, order)
	}
	return domain.Page[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// Ping checks connectivity for readiness probes.
func (r *OrderRepository) Ping(ctx context.Context) error {
	return wrapError("orders.ping", r.collection.Database().Client().Ping(ctx, nil))
}

func (r *OrderRepository) find(ctx context.Context, orderID string) (orderDocument, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return orderDocument{}, errors.New("mongo order repository: order id is required")
	}
	var doc orderDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc); err != nil {
		return orderDocument{}, wrapError("orders.get", err)
	}
	return doc, nil
}

func wrapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.NewStoreError(op, repositories.StoreErrorNotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return repositories.NewStoreError(op, repositories.StoreErrorConflict, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return repositories.NewStoreError(op, repositories.StoreErrorUnavailable, err)
	default:
		return repositories.NewStoreError(op, repositories.StoreErrorUnknown, err)
	}
}

type orderDocument struct {
	ID              string                         `bson:"_id"`
	Version         int64                          `bson:"version"`
	CustomerID      string                         `bson:"customerId"`
	CustomerEmail   string                         `bson:"customerEmail"`
	CustomerName    string                         `bson:"customerName"`
	LineItems       []lineItemDocument             `bson:"lineItems"`
	VendorOrders    map[string]vendorOrderDocument `bson:"vendorOrders"`
	VendorIDs       []string                       `bson:"vendorIds"`
	ShippingAddress shippingAddressDocument        `bson:"shippingAddress"`
	TotalAmount     primitive.Decimal128           `bson:"totalAmount"`
	PlatformFee     primitive.Decimal128           `bson:"platformFee"`
	Status          string                         `bson:"status"`
	PaymentStatus   string                         `bson:"paymentStatus"`
	CreatedAt       time.Time                      `bson:"createdAt"`
	UpdatedAt       time.Time                      `bson:"updatedAt"`
}

type lineItemDocument struct {
	ProductID        string               `bson:"productId"`
	ProductName      string               `bson:"productName"`
	VendorID         string               `bson:"vendorId"`
	Color            string               `bson:"color,omitempty"`
	Size             string               `bson:"size,omitempty"`
	Quantity         int                  `bson:"quantity"`
	PriceAtOrderTime primitive.Decimal128 `bson:"priceAtOrderTime"`
}

type vendorOrderDocument struct {
	VendorID              string                  `bson:"vendorId"`
	Products              []lineItemDocument      `bson:"products"`
	Subtotal              primitive.Decimal128    `bson:"subtotal"`
	Commission            primitive.Decimal128    `bson:"commission"`
	VendorEarnings        primitive.Decimal128    `bson:"vendorEarnings"`
	Status                string                  `bson:"status"`
	CustomerStatusMessage string                  `bson:"customerStatusMessage"`
	StatusHistory         []statusHistoryDocument `bson:"statusHistory"`
	TrackingInfo          *trackingInfoDocument   `bson:"trackingInfo,omitempty"`
	LastStatusUpdate      time.Time               `bson:"lastStatusUpdate"`
}

type statusHistoryDocument struct {
	Status          string    `bson:"status"`
	UpdatedAt       time.Time `bson:"updatedAt"`
	UpdatedBy       string    `bson:"updatedBy"`
	CustomerMessage string    `bson:"customerMessage"`
}

type trackingInfoDocument struct {
	TrackingNumber    string     `bson:"trackingNumber,omitempty"`
	Carrier           string     `bson:"carrier,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimatedDelivery,omitempty"`
}

type shippingAddressDocument struct {
	FullName   string `bson:"fullName"`
	Address    string `bson:"address"`
	City       string `bson:"city"`
	PostalCode string `bson:"postalCode"`
	Country    string `bson:"country"`
	Phone      string `bson:"phone,omitempty"`
}
