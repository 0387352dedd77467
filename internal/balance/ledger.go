package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a recorded collection as seen by the aggregator.
type Payment struct {
	ID         int64
	CustomerID int64
	OrderID    *int64
	Amount     decimal.Decimal
	DueDate    time.Time
}

// Ledger holds collection sums keyed by order and by customer. The two
// groupings are independent: unlinked payments only count per customer.
type Ledger struct {
	byOrder    map[int64]decimal.Decimal
	byCustomer map[int64]decimal.Decimal
}

// Aggregate sums payments by order and by customer in one pass. Negative
// amounts are ignored.
func Aggregate(payments []Payment) Ledger {
	l := Ledger{
		byOrder:    make(map[int64]decimal.Decimal),
		byCustomer: make(map[int64]decimal.Decimal),
	}
	for _, p := range payments {
		amount := nonNegative(p.Amount)
		l.byCustomer[p.CustomerID] = l.byCustomer[p.CustomerID].Add(amount)
		if p.OrderID != nil {
			l.byOrder[*p.OrderID] = l.byOrder[*p.OrderID].Add(amount)
		}
	}
	return l
}

// ForOrder returns the total collected against orderID.
func (l Ledger) ForOrder(orderID int64) decimal.Decimal {
	if v, ok := l.byOrder[orderID]; ok {
		return v
	}
	return decimal.Zero
}

// ForCustomer returns the total collected from customerID, linked or not.
func (l Ledger) ForCustomer(customerID int64) decimal.Decimal {
	if v, ok := l.byCustomer[customerID]; ok {
		return v
	}
	return decimal.Zero
}
