package balance

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ClampQuantity parses user input as a whole quantity. Fractions truncate;
// anything unparsable, negative or beyond int64 gives 0.
func ClampQuantity(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return max(n, 0)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() || d.GreaterThan(maxQuantity) {
		return 0
	}
	return d.IntPart()
}

// ClampAmount parses user input as money. Anything unparsable or negative
// gives 0.
func ClampAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
