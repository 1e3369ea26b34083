package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

const (
	defaultKeyPrefix = "marketplace:catalog:product"
	defaultTTL       = 5 * time.Minute
)

// Store is the subset of the go-redis client used by the catalog cache.
type Store interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ErrorHandler receives cache failures. The cache never fails a lookup because of Redis.
type ErrorHandler func(ctx context.Context, op string, err error)

// CatalogCache is a read-through cache in front of a CatalogReader. Only found
// products are cached; misses always go to the underlying catalog.
type CatalogCache struct {
	store     Store
	next      repositories.CatalogReader
	ttl       time.Duration
	keyPrefix string
	onError   ErrorHandler
}

// Option customises the cache.
type Option func(*CatalogCache)

// WithTTL overrides how long snapshots stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *CatalogCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix overrides the Redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *CatalogCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithErrorHandler registers a callback for Redis and codec failures.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *CatalogCache) {
		c.onError = fn
	}
}

func NewCatalogCache(store Store, next repositories.CatalogReader, opts ...Option) (*CatalogCache, error) {
	if store == nil {
		return nil, errors.New("catalog cache requires redis store")
	}
	if next == nil {
		return nil, errors.New("catalog cache requires catalog reader")
	}
	c := &CatalogCache{
		store:     store,
		next:      next,
		ttl:       defaultTTL,
		keyPrefix: defaultKeyPrefix,
		onError:   func(context.Context, string, error) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.onError == nil {
		c.onError = func(context.Context, string, error) {}
	}
	return c, nil
}

var _ repositories.CatalogReader = (*CatalogCache)(nil)

type cachedProduct struct {
	Name     string          `json:"name"`
	VendorID string          `json:"vendorId"`
	Price    decimal.Decimal `json:"price"`
}

func (c *CatalogCache) ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.ProductSnapshot, error) {
	out := make(map[string]domain.ProductSnapshot, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	misses := c.lookup(ctx, productIDs, out)
	if len(misses) == 0 {
		return out, nil
	}

	resolved, err := c.next.ResolveProducts(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, snapshot := range resolved {
		out[id] = snapshot
		c.remember(ctx, snapshot)
	}
	return out, nil
}

func (c *CatalogCache) lookup(ctx context.Context, productIDs []string, out map[string]domain.ProductSnapshot) []string {
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = c.key(id)
	}

	values, err := c.store.MGet(ctx, keys...).Result()
	if err != nil {
		c.onError(ctx, "catalog_cache.mget", err)
		return productIDs
	}

	misses := make([]string, 0, len(productIDs))
	for i, id := range productIDs {
		if i >= len(values) {
			misses = append(misses, id)
			continue
		}
		raw, ok := values[i].(string)
		if !ok {
			misses = append(misses, id)
			continue
		}
		var cached cachedProduct
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			c.onError(ctx, "catalog_cache.decode", fmt.Errorf("product %s: %w", id, err))
			misses = append(misses, id)
			continue
		}
		out[id] = domain.ProductSnapshot{
			ProductID: id,
			Name:      cached.Name,
			VendorID:  cached.VendorID,
			Price:     cached.Price,
		}
	}
	return misses
}

func (c *CatalogCache) remember(ctx context.Context, snapshot domain.ProductSnapshot) {
	payload, err := json.Marshal(cachedProduct{
		Name:     snapshot.Name,
		VendorID: snapshot.VendorID,
		Price:    snapshot.Price,
	})
	if err != nil {
		c.onError(ctx, "catalog_cache.encode", err)
		return
	}
	if err := c.store.Set(ctx, c.key(snapshot.ProductID), payload, c.ttl).Err(); err != nil {
		c.onError(ctx, "catalog_cache.set", err)
	}
}

func (c *CatalogCache) key(productID string) string {
	return fmt.Sprintf("%s:%s", c.keyPrefix, productID)
}
