// Package balance computes order values, collection totals and the
// outstanding pending/udhaar figures derived from them. Everything here is
// pure: callers fetch the rows and pass them in.
package balance

import "github.com/shopspring/decimal"

// Display labels for references that no longer resolve.
const (
	UnknownProductLabel  = "(unknown product)"
	UnknownCustomerLabel = "Unknown customer"
)

// PriceBook maps product ids to their current unit price.
type PriceBook map[int64]decimal.Decimal

// PriceEntry is one row used to seed a PriceBook.
type PriceEntry struct {
	ProductID int64
	Price     decimal.Decimal
}

// NewPriceBook builds a PriceBook. Later entries win on duplicate ids.
func NewPriceBook(entries ...PriceEntry) PriceBook {
	book := make(PriceBook, len(entries))
	for _, e := range entries {
		book[e.ProductID] = e.Price
	}
	return book
}

// Price returns the unit price for id. Negative prices read as zero.
func (b PriceBook) Price(id int64) (decimal.Decimal, bool) {
	p, ok := b[id]
	if !ok {
		return decimal.Zero, false
	}
	if p.IsNegative() {
		return decimal.Zero, true
	}
	return p, true
}

// LineItem is a product and quantity on an order.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// LineValue is a valued line item.
type LineValue struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
	Known     bool            `json:"known"`
}

// Valuation is the result of valuing an order.
type Valuation struct {
	Lines   []LineValue     `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Unknown []int64         `json:"unknown_products,omitempty"`
}

// ValueOrder prices every line against prices. Non-positive quantities and
// products missing from prices contribute zero; missing ids are reported
// once each in Unknown, in first-seen order.
func ValueOrder(items []LineItem, prices PriceBook) Valuation {
	v := Valuation{Lines: make([]LineValue, 0, len(items)), Total: decimal.Zero}
	seen := make(map[int64]struct{})
	for _, item := range items {
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		price, known := prices.Price(item.ProductID)
		amount := price.Mul(decimal.NewFromInt(qty))
		v.Lines = append(v.Lines, LineValue{
			ProductID: item.ProductID,
			Quantity:  qty,
			UnitPrice: price,
			Amount:    amount,
			Known:     known,
		})
		v.Total = v.Total.Add(amount)
		if !known {
			if _, dup := seen[item.ProductID]; !dup {
				seen[item.ProductID] = struct{}{}
				v.Unknown = append(v.Unknown, item.ProductID)
			}
		}
	}
	return v
}

// OrderTotal returns only the total of ValueOrder.
func OrderTotal(items []LineItem, prices PriceBook) decimal.Decimal {
	return ValueOrder(items, prices).Total
}
