package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
)

// VendorShare is the money split of one vendor subtotal.
type VendorShare struct {
	Subtotal       decimal.Decimal
	Commission     decimal.Decimal
	VendorEarnings decimal.Decimal
}

// CommissionCalculator applies a fixed platform commission rate to vendor subtotals.
type CommissionCalculator struct {
	rate decimal.Decimal
}

// NewCommissionCalculator validates the rate, which must lie in [0, 1).
func NewCommissionCalculator(rate decimal.Decimal) (CommissionCalculator, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return CommissionCalculator{}, fmt.Errorf("commission rate must be within [0, 1), got %s", rate.String())
	}
	return CommissionCalculator{rate: rate}, nil
}

// Share computes commission as the subtotal times the rate rounded half-up to cents.
// Earnings are derived by subtraction so commission plus earnings always equals the subtotal.
func (c CommissionCalculator) Share(subtotal decimal.Decimal) VendorShare {
	commission := domain.RoundMoney(subtotal.Mul(c.rate))
	return VendorShare{
		Subtotal:       subtotal,
		Commission:     commission,
		VendorEarnings: subtotal.Sub(commission),
	}
}

// PlatformFee sums already rounded per-vendor commissions.
func PlatformFee(vendorOrders map[string]domain.VendorOrder) decimal.Decimal {
	fee := decimal.Zero
	for _, vendorOrder := range vendorOrders {
		fee = fee.Add(vendorOrder.Commission)
	}
	return fee
}
