package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every monetary value is persisted with
const MoneyPlaces int32 = 4

// RoundMoney rounds d to MoneyPlaces using round-half-away-from-zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MoneyFromFloat converts f through its shortest decimal representation,
// so 8987.0 becomes exactly 8987.0000 instead of a binary neighbour.
func MoneyFromFloat(f float64) decimal.Decimal {
	return RoundMoney(decimal.NewFromFloat(f))
}

// MoneyFromString parses a decimal string and rounds it.
func MoneyFromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, NewValidationError("Invalid monetary amount: " + s)
	}
	return RoundMoney(d), nil
}

// NullMoney wraps a rounded amount as a valid NullDecimal
func NullMoney(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: RoundMoney(d), Valid: true}
}

// PositiveOrNull returns d as a NullDecimal, or null when d is zero or negative
func PositiveOrNull(d decimal.Decimal) decimal.NullDecimal {
	rounded := RoundMoney(d)
	if !rounded.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: rounded, Valid: true}
}

// Ratio returns numerator / denominator, or zero when the denominator is zero.
// The result is not rounded; callers round the final monetary value.
func Ratio(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

// Units converts an integer unit count to a decimal for money arithmetic
func Units(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
