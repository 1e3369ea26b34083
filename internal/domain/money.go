package domain

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places money amounts are rounded to.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two places, which is half-up for the
// non-negative amounts this service handles.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// FormatMoney renders an amount with exactly two decimal places.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyPlaces)
}
