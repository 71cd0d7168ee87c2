package utils

import (
	"github.com/shopspring/decimal"
)

// RoundCents rounds an amount to two decimal places
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// AmountsMatch reports whether a and b differ by no more than AmountTolerance
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}

// FormatAmount renders an amount with exactly two decimals for API responses
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ToMinorUnits converts an amount to the smallest currency unit (paise, cents)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
