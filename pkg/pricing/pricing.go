// Package pricing holds the money arithmetic shared by vouchers, commission
// accrual and storefront price display.
package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")
	ErrAmountOutOfRange  = errors.New("amount does not fit in minor units")
)

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Commission is amount * rate / 100, rounded to cents.
func Commission(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

// DiscountedPrice applies a percentage discount to original.
func DiscountedPrice(original, percentage decimal.Decimal) (decimal.Decimal, error) {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return decimal.Zero, ErrInvalidPercentage
	}
	return original.Mul(hundred.Sub(percentage)).Div(hundred).Round(2), nil
}

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true, "mga": true,
	"pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// MinorUnits converts a major-unit amount into the provider's smallest unit
// (cents, kobo...). Fractions below the minor unit are rounded half away from
// zero. Amounts outside the int64 range return ErrAmountOutOfRange.
func MinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	minor := amount
	if !zeroDecimalCurrencies[currency] {
		minor = amount.Mul(hundred)
	}
	minor = minor.Round(0)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, ErrAmountOutOfRange
	}
	return minor.IntPart(), nil
}
