package services

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

func TestProjectCustomerOrder(t *testing.T) {
	order := newTwoVendorOrder(t)
	tracking := "1Z999"
	shippedAt := transitionBase.Add(3 * time.Hour)
	if _, err := ApplyVendorOrderTransition(&order, "v1", VendorOrderTransition{
		Status:         domain.VendorOrderStatusShipped,
		TrackingNumber: &tracking,
		At:             shippedAt,
	}); err != nil {
		t.Fatalf("ship: %v", err)
	}

	names := map[string]string{"v1": "Loom & Thread"}
	view := ProjectCustomerOrder(order, names)

	if view.Status != domain.OrderStatusShipped || view.StatusSummary != "Some items shipped" {
		t.Fatalf("unexpected status %s / %q", view.Status, view.StatusSummary)
	}
	if !view.HasShippedItems || view.HasDeliveredItems || view.AllItemsDelivered {
		t.Fatalf("unexpected flags %+v", view)
	}
	if !view.LatestStatusUpdate.Equal(shippedAt) {
		t.Fatalf("expected latest update %v, got %v", shippedAt, view.LatestStatusUpdate)
	}
	if len(view.Vendors) != 2 {
		t.Fatalf("expected 2 vendor views, got %d", len(view.Vendors))
	}
	if view.Vendors[0].VendorName != "Loom & Thread" || view.Vendors[1].VendorName != UnknownVendorName {
		t.Fatalf("unexpected vendor names %q, %q", view.Vendors[0].VendorName, view.Vendors[1].VendorName)
	}
	if view.Vendors[0].Tracking == nil || view.Vendors[0].Tracking.TrackingNumber != "1Z999" {
		t.Fatalf("expected tracking on first vendor, got %+v", view.Vendors[0].Tracking)
	}
	if len(view.Vendors[0].Products) != 1 || view.Vendors[0].Products[0].Quantity != 2 {
		t.Fatalf("unexpected products %+v", view.Vendors[0].Products)
	}

	rendered := fmt.Sprintf("%+v", view)
	for _, vendorID := range []string{"v1", "v2"} {
		if strings.Contains(rendered, vendorID) {
			t.Fatalf("projection leaks vendor id %s: %s", vendorID, rendered)
		}
	}
	if strings.Contains(rendered, "Commission") {
		t.Fatalf("projection leaks commission: %s", rendered)
	}

	again := ProjectCustomerOrder(order, names)
	if !reflect.DeepEqual(view, again) {
		t.Fatalf("projection must be deterministic")
	}
}

func TestProjectCustomerOrderAllDelivered(t *testing.T) {
	order := newTwoVendorOrder(t)
	for i, vendorID := range []string{"v1", "v2"} {
		if _, err := ApplyVendorOrderTransition(&order, vendorID, VendorOrderTransition{
			Status: domain.VendorOrderStatusDelivered,
			At:     transitionBase.Add(time.Duration(i+1) * time.Hour),
		}); err != nil {
			t.Fatalf("deliver %s: %v", vendorID, err)
		}
	}

	view := ProjectCustomerOrder(order, nil)
	if !view.AllItemsDelivered || !view.HasDeliveredItems || view.HasShippedItems {
		t.Fatalf("unexpected flags %+v", view)
	}
	if view.Status != domain.OrderStatusDelivered || view.StatusSummary != "All items delivered" {
		t.Fatalf("unexpected status %s / %q", view.Status, view.StatusSummary)
	}
	if !view.LatestStatusUpdate.Equal(transitionBase.Add(2 * time.Hour)) {
		t.Fatalf("unexpected latest update %v", view.LatestStatusUpdate)
	}
}
