package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/sales/orders"
)

type QuotationStatus string

const (
	QuotationStatusPending  QuotationStatus = "pending"
	QuotationStatusApproved QuotationStatus = "approved"
	QuotationStatusRejected QuotationStatus = "rejected"
)

func (s QuotationStatus) Valid() bool {
	switch s {
	case QuotationStatusPending, QuotationStatusApproved, QuotationStatusRejected:
		return true
	}
	return false
}

// Quotation prices a single product for a customer. It stays on record after
// conversion to an order.
type Quotation struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"-"`
	CustomerID       int64           `json:"customer_id"`
	ProductID        int64           `json:"product_id"`
	Quantity         int64           `json:"quantity"`
	Status           QuotationStatus `json:"status"`
	ConvertedToOrder bool            `json:"converted_to_order"`
	OrderID          *int64          `json:"order_id,omitempty"`
	Remarks          string          `json:"remarks"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// QuotationWithTotal carries the value at current product prices.
type QuotationWithTotal struct {
	Quotation
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	UnknownProduct bool            `json:"unknown_product,omitempty"`
}

// Conversion is the order created from a quotation with its opening balance.
type Conversion struct {
	Order   *orders.Order        `json:"order"`
	Opening balance.OrderBalance `json:"opening_balance"`
}

// Preview values a quotation that has not been saved yet.
type Preview struct {
	ProductID           int64                `json:"product_id"`
	Quantity            int64                `json:"quantity"`
	UnitPrice           decimal.Decimal      `json:"unit_price"`
	Total               decimal.Decimal      `json:"total"`
	UnknownProduct      bool                 `json:"unknown_product,omitempty"`
	AdvanceExceedsTotal bool                 `json:"advance_exceeds_total,omitempty"`
	Opening             balance.OrderBalance `json:"opening_balance"`
}
