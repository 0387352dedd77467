package balance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerBalance is the per-customer dashboard aggregate.
type CustomerBalance struct {
	CustomerID  int64           `json:"customer_id"`
	Udhaar      decimal.Decimal `json:"udhaar"`
	Pending     decimal.Decimal `json:"pending"`
	Orders      int             `json:"orders"`
	EarliestDue *time.Time      `json:"earliest_due,omitempty"`
}

// SummarizeCustomers groups order balances per customer. Udhaar sums
// delivered orders with nonzero udhaar; Pending sums undelivered orders.
// EarliestDue is the earliest due date among the customer's payments that are
// unlinked or linked to one of its outstanding orders. Customers with nothing
// outstanding are omitted. The result is ordered by EarliestDue, customers
// without one last, then by customer id.
func SummarizeCustomers(balances []OrderBalance, payments []Payment) []CustomerBalance {
	byCustomer := make(map[int64]*CustomerBalance)
	open := make(map[int64]int64)

	for _, b := range balances {
		if !b.Outstanding.IsPositive() {
			continue
		}
		cb, ok := byCustomer[b.CustomerID]
		if !ok {
			cb = &CustomerBalance{CustomerID: b.CustomerID, Udhaar: decimal.Zero, Pending: decimal.Zero}
			byCustomer[b.CustomerID] = cb
		}
		if b.Status == StatusDelivered {
			cb.Udhaar = cb.Udhaar.Add(b.Udhaar)
		} else {
			cb.Pending = cb.Pending.Add(b.Pending)
		}
		cb.Orders++
		open[b.OrderID] = b.CustomerID
	}

	for _, p := range payments {
		cb, ok := byCustomer[p.CustomerID]
		if !ok || p.DueDate.IsZero() {
			continue
		}
		if p.OrderID != nil {
			if owner, linked := open[*p.OrderID]; !linked || owner != p.CustomerID {
				continue
			}
		}
		if cb.EarliestDue == nil || p.DueDate.Before(*cb.EarliestDue) {
			due := p.DueDate
			cb.EarliestDue = &due
		}
	}

	out := make([]CustomerBalance, 0, len(byCustomer))
	for _, cb := range byCustomer {
		out = append(out, *cb)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].EarliestDue, out[j].EarliestDue
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// Total returns udhaar plus pending.
func (c CustomerBalance) Total() decimal.Decimal {
	return c.Udhaar.Add(c.Pending)
}
