package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/platform/pagination"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

const defaultMaxAttempts = 5

type orderRecord struct {
	order   domain.Order
	version int64
}

// OrderRepository is an in-process order store with the same optimistic
// concurrency contract as the Firestore and MongoDB stores.
type OrderRepository struct {
	mu         sync.RWMutex
	orders     map[string]orderRecord
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

func NewOrderRepository(opts ...Option) *OrderRepository {
	repo := &OrderRepository{
		orders:   make(map[string]orderRecord),
		attempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("memory order repository: order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[id]; exists {
		return repositories.NewStoreError("orders.insert", repositories.StoreErrorConflict, fmt.Errorf("order %s already exists", id))
	}
	r.orders[id] = orderRecord{order: cloneOrder(order), version: 1}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	record, ok := r.load(orderID)
	if !ok {
		return domain.Order{}, repositories.NewStoreError("orders.get", repositories.StoreErrorNotFound, fmt.Errorf("order %s", orderID))
	}
	return record.order, nil
}

func (r *OrderRepository) MutateVendorOrder(ctx context.Context, orderID, vendorID string, mutate repositories.OrderMutation) (domain.Order, error) {
	if mutate == nil {
		return domain.Order{}, errors.New("memory order repository: mutation is required")
	}

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Order{}, err
		}
		if attempt > 1 && r.onConflict != nil {
			r.onConflict(ctx, orderID, vendorID, attempt)
		}

		record, ok := r.load(orderID)
		if !ok {
			return domain.Order{}, repositories.NewStoreError("orders.mutate", repositories.StoreErrorNotFound, fmt.Errorf("order %s", orderID))
		}
		working := record.order
		if err := mutate(&working); err != nil {
			return domain.Order{}, err
		}
		vendorOrder, ok := working.VendorOrders[vendorID]
		if !ok {
			return domain.Order{}, repositories.NewStoreError("orders.mutate", repositories.StoreErrorNotFound, fmt.Errorf("vendor order %s missing after mutation", vendorID))
		}

		if updated, ok := r.compareAndSwap(orderID, record.version, vendorID, vendorOrder, working); ok {
			return updated, nil
		}
	}

	return domain.Order{}, repositories.NewStoreError("orders.mutate", repositories.StoreErrorConflict,
		fmt.Errorf("order %s vendor %s: gave up after %d attempts", orderID, vendorID, r.attempts))
}

// compareAndSwap writes the vendor order and derived fields when the stored
// version still matches the one the mutation read.
func (r *OrderRepository) compareAndSwap(orderID string, version int64, vendorID string, vendorOrder domain.VendorOrder, working domain.Order) (domain.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[orderID]
	if !ok || current.version != version {
		return domain.Order{}, false
	}
	next := cloneOrder(current.order)
	next.VendorOrders[vendorID] = cloneVendorOrder(vendorOrder)
	next.Status = working.Status
	next.UpdatedAt = working.UpdatedAt
	r.orders[orderID] = orderRecord{order: next, version: version + 1}
	return cloneOrder(next), true
}

func (r *OrderRepository) ListByVendor(ctx context.Context, filter repositories.VendorOrderListFilter) (domain.Page[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Order]{}, err
	}
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	matches := make([]domain.Order, 0)
	for _, record := range r.orders {
		if _, ok := record.order.VendorOrders[filter.VendorID]; !ok {
			continue
		}
		if !cursor.After(record.order.CreatedAt, record.order.ID) {
			continue
		}
		matches = append(matches, cloneOrder(record.order))
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	nextToken := ""
	if len(matches) > limit {
		matches = matches[:limit]
		last := matches[len(matches)-1]
		nextToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, OrderID: last.ID})
	}
	return domain.Page[domain.Order]{Items: matches, NextPageToken: nextToken}, nil
}

func (r *OrderRepository) load(orderID string) (orderRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.orders[strings.TrimSpace(orderID)]
	if !ok {
		return orderRecord{}, false
	}
	return orderRecord{order: cloneOrder(record.order), version: record.version}, true
}

func cloneOrder(order domain.Order) domain.Order {
	out := order
	out.LineItems = append([]domain.LineItem(nil), order.LineItems...)
	out.VendorSequence = append([]string(nil), order.VendorSequence...)
	out.VendorOrders = make(map[string]domain.VendorOrder, len(order.VendorOrders))
	for vendorID, vo := range order.VendorOrders {
		out.VendorOrders[vendorID] = cloneVendorOrder(vo)
	}
	return out
}

func cloneVendorOrder(vo domain.VendorOrder) domain.VendorOrder {
	out := vo
	out.Products = append([]domain.LineItem(nil), vo.Products...)
	out.StatusHistory = append([]domain.StatusHistoryEntry(nil), vo.StatusHistory...)
	if vo.TrackingInfo != nil {
		tracking := *vo.TrackingInfo
		if vo.TrackingInfo.EstimatedDelivery != nil {
			eta := *vo.TrackingInfo.EstimatedDelivery
			tracking.EstimatedDelivery = &eta
		}
		out.TrackingInfo = &tracking
	}
	return out
}
