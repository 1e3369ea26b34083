package services

import (
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// VendorGroup holds the resolved cart lines belonging to one vendor.
type VendorGroup struct {
	VendorID string
	Lines    []domain.LineItem
	Subtotal decimal.Decimal
}

// CartSplit is the outcome of partitioning a cart by vendor.
type CartSplit struct {
	// LineItems keeps every resolved line in original cart order.
	LineItems []domain.LineItem
	// Groups lists one group per vendor in first-seen order.
	Groups []VendorGroup
	// Dropped counts cart lines whose product could not be resolved.
	Dropped int
}

// SplitCart partitions cart lines by owning vendor using the resolved catalog snapshots.
// Lines whose product is missing from snapshots, or whose snapshot has no vendor, are omitted
// and counted in Dropped. Subtotals are the exact sum of price times quantity with no rounding.
func SplitCart(lines []domain.CartLine, snapshots map[string]domain.ProductSnapshot) CartSplit {
	split := CartSplit{
		LineItems: make([]domain.LineItem, 0, len(lines)),
	}
	groupIndex := make(map[string]int)

	for _, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		snapshot, ok := snapshots[productID]
		if !ok || strings.TrimSpace(snapshot.VendorID) == "" {
			split.Dropped++
			continue
		}

		item := domain.LineItem{
			ProductID:        productID,
			ProductName:      snapshot.Name,
			VendorID:         strings.TrimSpace(snapshot.VendorID),
			Color:            strings.TrimSpace(line.Color),
			Size:             strings.TrimSpace(line.Size),
			Quantity:         line.Quantity,
			PriceAtOrderTime: snapshot.Price,
		}
		split.LineItems = append(split.LineItems, item)

		idx, seen := groupIndex[item.VendorID]
		if !seen {
			idx = len(split.Groups)
			groupIndex[item.VendorID] = idx
			split.Groups = append(split.Groups, VendorGroup{VendorID: item.VendorID, Subtotal: decimal.Zero})
		}
		group := &split.Groups[idx]
		group.Lines = append(group.Lines, item)
		group.Subtotal = group.Subtotal.Add(item.LineTotal())
	}

	return split
}

// ResolvedSubtotal sums the subtotals of every group.
func (s CartSplit) ResolvedSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, group := range s.Groups {
		total = total.Add(group.Subtotal)
	}
	return total
}
