package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (centimes, 1 DHS = 100).
type Money = int64

// ErrInvalidAmount is returned when a textual amount cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Dirhams converts a whole dirham amount into Money.
func Dirhams(v int64) Money {
	return v * 100
}

// FormatAmount renders m in dirhams with two decimals, e.g. "259.00".
func FormatAmount(m Money) string {
	return decimal.New(m, -2).StringFixed(2)
}

// FormatShort renders m in dirhams without a trailing zero fraction, e.g. "30" or "12.5".
func FormatShort(m Money) string {
	return decimal.New(m, -2).String()
}

// ParseAmount converts a dirham amount such as "259" or "259.90" into Money.
// Fractions below one centime are rounded half away from zero.
func ParseAmount(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
