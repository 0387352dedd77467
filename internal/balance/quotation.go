package balance

import "github.com/shopspring/decimal"

// QuotationTotal values a single-product quotation.
func QuotationTotal(price decimal.Decimal, quantity int64) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return nonNegative(price).Mul(decimal.NewFromInt(quantity))
}

// ConversionSeed is the opening balance of an order created from a
// quotation: its own advance and nothing collected yet.
func ConversionSeed(quoteTotal, advance decimal.Decimal) OrderBalance {
	return ResolveAmounts(StatusPending, quoteTotal, advance, decimal.Zero)
}

// AdvanceWithinTotal reports whether advance is in [0, total].
func AdvanceWithinTotal(advance, total decimal.Decimal) bool {
	return !advance.IsNegative() && advance.LessThanOrEqual(total)
}
