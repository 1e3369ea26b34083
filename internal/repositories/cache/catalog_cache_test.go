package cache

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

type fakeStore struct {
	values  map[string]string
	mgetErr error
	setErr  error
	setTTLs map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, setTTLs: map[string]time.Duration{}}
}

func (f *fakeStore) MGet(_ context.Context, keys ...string) *redis.SliceCmd {
	if f.mgetErr != nil {
		return redis.NewSliceResult(nil, f.mgetErr)
	}
	out := make([]interface{}, len(keys))
	for i, key := range keys {
		if v, ok := f.values[key]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = string(value.([]byte))
	f.setTTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingCatalog struct {
	products map[string]domain.ProductSnapshot
	requests [][]string
	err      error
}

func (c *countingCatalog) ResolveProducts(_ context.Context, ids []string) (map[string]domain.ProductSnapshot, error) {
	c.requests = append(c.requests, append([]string(nil), ids...))
	if c.err != nil {
		return nil, c.err
	}
	out := map[string]domain.ProductSnapshot{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newCatalog() *countingCatalog {
	return &countingCatalog{products: map[string]domain.ProductSnapshot{
		"p1": {ProductID: "p1", Name: "Mug", VendorID: "v1", Price: decimal.RequireFromString("12.50")},
		"p2": {ProductID: "p2", Name: "Print", VendorID: "v2", Price: decimal.RequireFromString("30")},
	}}
}

func TestCatalogCacheReadsThroughAndCaches(t *testing.T) {
	store := newFakeStore()
	catalog := newCatalog()
	cache, err := NewCatalogCache(store, catalog, WithTTL(time.Minute))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()

	first, err := cache.ResolveProducts(ctx, []string{"p1", "p2", "missing"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 products, got %d", len(first))
	}
	if ttl := store.setTTLs[defaultKeyPrefix+":p1"]; ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %s", ttl)
	}

	second, err := cache.ResolveProducts(ctx, []string{"p1", "p2", "missing"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !second["p1"].Price.Equal(decimal.RequireFromString("12.5")) || second["p2"].VendorID != "v2" || second["p1"].Name != "Mug" {
		t.Fatalf("unexpected cached snapshot %+v", second)
	}
	if len(catalog.requests) != 2 {
		t.Fatalf("expected 2 catalog calls, got %d", len(catalog.requests))
	}
	if got := catalog.requests[1]; len(got) != 1 || got[0] != "missing" {
		t.Fatalf("expected only the miss to reach the catalog, got %v", got)
	}
}

func TestCatalogCacheFallsBackWhenRedisFails(t *testing.T) {
	store := newFakeStore()
	store.mgetErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	catalog := newCatalog()

	var ops []string
	cache, err := NewCatalogCache(store, catalog, WithErrorHandler(func(_ context.Context, op string, _ error) {
		ops = append(ops, op)
	}))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	products, err := cache.ResolveProducts(context.Background(), []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected catalog results, got %d", len(products))
	}
	sort.Strings(ops)
	if len(ops) != 3 || ops[0] != "catalog_cache.mget" || ops[1] != "catalog_cache.set" {
		t.Fatalf("unexpected error ops %v", ops)
	}
}

func TestCatalogCacheIgnoresCorruptEntries(t *testing.T) {
	store := newFakeStore()
	store.values[defaultKeyPrefix+":p1"] = "{not json"
	catalog := newCatalog()
	cache, err := NewCatalogCache(store, catalog)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	products, err := cache.ResolveProducts(context.Background(), []string{"p1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if products["p1"].Name != "Mug" {
		t.Fatalf("expected catalog snapshot, got %+v", products["p1"])
	}
}

func TestCatalogCachePropagatesCatalogErrors(t *testing.T) {
	catalog := newCatalog()
	catalog.err = errors.New("firestore unavailable")
	cache, err := NewCatalogCache(newFakeStore(), catalog)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if _, err := cache.ResolveProducts(context.Background(), []string{"p1"}); !errors.Is(err, catalog.err) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}
