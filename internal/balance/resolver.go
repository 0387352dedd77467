package balance

import "github.com/shopspring/decimal"

// Status is an order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// Bucket is the dashboard tab an order belongs to.
type Bucket string

const (
	BucketPending Bucket = "pending"
	BucketUdhaar  Bucket = "udhaar"
	BucketHistory Bucket = "history"
)

// OrderInput is the slice of an order the resolver needs.
type OrderInput struct {
	ID         int64
	CustomerID int64
	Status     Status
	Items      []LineItem
	Advance    decimal.Decimal
}

// OrderBalance is the resolved money position of one order. Exactly one of
// Pending and Udhaar carries Outstanding, chosen by Status.
type OrderBalance struct {
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	Status      Status          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Advance     decimal.Decimal `json:"advance"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Pending     decimal.Decimal `json:"pending"`
	Udhaar      decimal.Decimal `json:"udhaar"`
	Unknown     []int64         `json:"unknown_products,omitempty"`
}

// Bucket places the order on the pending, udhaar or history tab.
func (b OrderBalance) Bucket() Bucket {
	if b.Status != StatusDelivered {
		return BucketPending
	}
	if b.Udhaar.IsPositive() {
		return BucketUdhaar
	}
	return BucketHistory
}

// Outstanding returns max(0, total - advance - collected). Negative inputs
// are read as zero.
func Outstanding(total, advance, collected decimal.Decimal) decimal.Decimal {
	out := nonNegative(total).Sub(nonNegative(advance)).Sub(nonNegative(collected))
	return nonNegative(out)
}

// ResolveAmounts builds an OrderBalance from already computed figures.
func ResolveAmounts(status Status, total, advance, collected decimal.Decimal) OrderBalance {
	out := Outstanding(total, advance, collected)
	b := OrderBalance{
		Status:      status,
		Total:       nonNegative(total),
		Advance:     nonNegative(advance),
		Collected:   nonNegative(collected),
		Outstanding: out,
		Pending:     decimal.Zero,
		Udhaar:      decimal.Zero,
	}
	if status == StatusDelivered {
		b.Udhaar = out
	} else {
		b.Pending = out
	}
	return b
}

// ResolveOrder values the order, looks up what was collected against it and
// resolves the outstanding amount.
func ResolveOrder(in OrderInput, prices PriceBook, ledger Ledger) OrderBalance {
	v := ValueOrder(in.Items, prices)
	b := ResolveAmounts(in.Status, v.Total, in.Advance, ledger.ForOrder(in.ID))
	b.OrderID = in.ID
	b.CustomerID = in.CustomerID
	b.Unknown = v.Unknown
	return b
}
