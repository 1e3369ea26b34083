package repositories

import (
	"context"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderMutation applies a change to a freshly read order. It may be invoked more than once
// when the store retries after a concurrent write; it must not have side effects outside the
// order it receives. Returning an error aborts the write and leaves the stored order untouched.
type OrderMutation func(order *domain.Order) error

// WriteConflictObserver is notified each time a vendor order write lost a race and is being
// retried. attempt is the number of the upcoming attempt, starting at 2.
type WriteConflictObserver func(ctx context.Context, orderID, vendorID string, attempt int)

// OrderRepository persists orders and their embedded vendor orders.
//
// MutateVendorOrder is the compare-and-swap boundary for fulfillment updates: the store reads
// the order, applies mutate, and writes back only the vendor order addressed by vendorID plus the
// derived order-level fields (status, updatedAt). A write that loses a race is re-read and the
// mutation re-applied, up to the store's attempt limit, after which a conflict error is returned.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	MutateVendorOrder(ctx context.Context, orderID, vendorID string, mutate OrderMutation) (domain.Order, error)
	ListByVendor(ctx context.Context, filter VendorOrderListFilter) (domain.Page[domain.Order], error)
}

// VendorOrderListFilter narrows order listings to the orders containing one vendor.
type VendorOrderListFilter struct {
	VendorID   string
	Pagination domain.Pagination
}

// CatalogReader resolves cart product references to their current price and owning vendor.
// Products that do not exist are absent from the returned map rather than reported as errors.
type CatalogReader interface {
	ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.ProductSnapshot, error)
}

// VendorDirectory resolves vendor display names. Unknown vendors are absent from the result.
type VendorDirectory interface {
	DisplayNames(ctx context.Context, vendorIDs []string) (map[string]string, error)
}

// HealthRepository exposes dependency health information for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
