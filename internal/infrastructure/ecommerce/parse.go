package ecommerce

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Upstream payloads are not trusted: monetary and numeric fields arrive as
// strings and are occasionally empty or malformed. Parsing falls back to
// zero instead of failing the record; the fallback is a deliberate,
// centralized decision so normalizers never branch on parse errors.

// ParseDecimal parses a decimal string, returning zero on empty or
// malformed input.
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseInt parses an integer string, returning 0 on empty or malformed
// input. Negative quantities are clamped to 0.
func ParseInt(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
