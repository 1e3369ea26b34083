//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
	"github.com/timi-123/shop-admin-sub000/internal/services"
)

func buildIntegrationOrder(t *testing.T, id string, createdAt time.Time, vendorIDs ...string) domain.Order {
	t.Helper()
	snapshots := make(map[string]domain.ProductSnapshot, len(vendorIDs))
	lines := make([]domain.CartLine, 0, len(vendorIDs))
	for i, vendorID := range vendorIDs {
		productID := fmt.Sprintf("p-%s", vendorID)
		snapshots[productID] = domain.ProductSnapshot{
			ProductID: productID,
			Name:      "Item " + vendorID,
			VendorID:  vendorID,
			Price:     decimal.RequireFromString("19.99"),
		}
		lines = append(lines, domain.CartLine{ProductID: productID, Quantity: i + 1})
	}
	commission, err := services.NewCommissionCalculator(decimal.RequireFromString("0.07"))
	if err != nil {
		t.Fatalf("commission: %v", err)
	}
	return services.BuildOrder(services.OrderDraft{
		OrderID:     id,
		CustomerID:  "cust-1",
		Shipping:    domain.ShippingAddress{FullName: "Ada", Address: "1 Loop", City: "Tokyo", PostalCode: "100", Country: "JP"},
		TotalAmount: decimal.RequireFromString("59.97"),
		Split:       services.SplitCart(lines, snapshots),
		Commission:  commission,
		CreatedAt:   createdAt,
	})
}

func TestOrderRepositoryIntegration(t *testing.T) {
	provider := newEmulatorProvider(t, "orders-test")

	var (
		conflictMu sync.Mutex
		conflicts  int
	)
	repo, err := NewOrderRepository(provider,
		WithMaxWriteAttempts(25),
		WithConflictObserver(func(context.Context, string, string, int) {
			conflictMu.Lock()
			conflicts++
			conflictMu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	order := buildIntegrationOrder(t, "ord_int_1", created, "v1", "v2", "v3")
	if err := repo.Insert(ctx, order); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = repo.Insert(ctx, order)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict on duplicate insert, got %v", err)
	}

	stored, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.TotalAmount.Equal(order.TotalAmount) || !stored.PlatformFee.Equal(order.PlatformFee) {
		t.Fatalf("money did not round-trip: %s %s", stored.TotalAmount, stored.PlatformFee)
	}
	if got := stored.VendorIDs(); len(got) != 3 || got[0] != "v1" || got[2] != "v3" {
		t.Fatalf("unexpected vendor sequence %v", got)
	}

	// Concurrent updates from different vendors must all land.
	var wg sync.WaitGroup
	for _, vendorID := range []string{"v1", "v2", "v3"} {
		wg.Add(1)
		go func(vendorID string) {
			defer wg.Done()
			_, err := repo.MutateVendorOrder(ctx, order.ID, vendorID, func(o *domain.Order) error {
				_, err := services.ApplyVendorOrderTransition(o, vendorID, services.VendorOrderTransition{
					Status:    domain.VendorOrderStatusInProduction,
					UpdatedBy: vendorID,
					At:        created.Add(time.Hour),
				})
				return err
			})
			if err != nil {
				t.Errorf("mutate %s: %v", vendorID, err)
			}
		}(vendorID)
	}
	wg.Wait()

	stored, err = repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find after mutate: %v", err)
	}
	for _, vendorID := range []string{"v1", "v2", "v3"} {
		vo := stored.VendorOrders[vendorID]
		if vo.Status != domain.VendorOrderStatusInProduction {
			t.Fatalf("vendor %s lost its update: %s", vendorID, vo.Status)
		}
		if len(vo.StatusHistory) != 2 {
			t.Fatalf("vendor %s expected 2 history entries, got %d", vendorID, len(vo.StatusHistory))
		}
	}
	if stored.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", stored.Status)
	}
	t.Logf("observed %d contended attempts", conflicts)

	_, err = repo.MutateVendorOrder(ctx, "ord_missing", "v1", func(*domain.Order) error { return nil })
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}

	second := buildIntegrationOrder(t, "ord_int_2", created.Add(time.Minute), "v1")
	third := buildIntegrationOrder(t, "ord_int_3", created.Add(2*time.Minute), "v2")
	for _, o := range []domain.Order{second, third} {
		if err := repo.Insert(ctx, o); err != nil {
			t.Fatalf("insert %s: %v", o.ID, err)
		}
	}

	page, err := repo.ListByVendor(ctx, repositories.VendorOrderListFilter{VendorID: "v1", Pagination: domain.Pagination{PageSize: 1}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "ord_int_2" || page.NextPageToken == "" {
		t.Fatalf("unexpected first page %+v", page)
	}
	page, err = repo.ListByVendor(ctx, repositories.VendorOrderListFilter{VendorID: "v1", Pagination: domain.Pagination{PageSize: 1, PageToken: page.NextPageToken}})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "ord_int_1" || page.NextPageToken != "" {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestCatalogAndVendorRepositoriesIntegration(t *testing.T) {
	provider := newEmulatorProvider(t, "catalog-test")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	seed := map[string]map[string]any{
		"products/p1": {"name": "Mug", "vendorId": "v1", "price": 12.5},
		"products/p2": {"name": "Print", "vendorId": "v2", "price": "30.00"},
		"products/p3": {"name": "Card", "vendorId": "v1", "price": int64(4)},
		"vendors/v1":  {"displayName": "Clay Works"},
		"vendors/v2":  {"businessName": "Paper Co"},
	}
	for path, data := range seed {
		if _, err := client.Doc(path).Set(ctx, data); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}

	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	products, err := catalog.ResolveProducts(ctx, []string{"p1", "p2", "p3", "missing", "p1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	if products["p1"].Price.String() != "12.5" || products["p2"].Price.String() != "30" || products["p3"].Price.String() != "4" {
		t.Fatalf("unexpected prices %+v", products)
	}
	if products["p2"].VendorID != "v2" {
		t.Fatalf("unexpected vendor %s", products["p2"].VendorID)
	}

	vendors, err := NewVendorRepository(provider)
	if err != nil {
		t.Fatalf("vendors: %v", err)
	}
	names, err := vendors.DisplayNames(ctx, []string{"v1", "v2", "v9"})
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if names["v1"] != "Clay Works" || names["v2"] != "Paper Co" {
		t.Fatalf("unexpected names %v", names)
	}
	if _, ok := names["v9"]; ok {
		t.Fatal("unknown vendor should be absent")
	}
	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
