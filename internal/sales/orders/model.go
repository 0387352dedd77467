package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/shared"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = OrderStatus(balance.StatusPending)
	OrderStatusDelivered OrderStatus = OrderStatus(balance.StatusDelivered)
)

func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusDelivered
}

type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"-"`
	CustomerID    int64           `json:"customer_id"`
	Status        OrderStatus     `json:"status"`
	JobDate       shared.Date     `json:"job_date"`
	Assignee      string          `json:"assignee"`
	SiteAddress   string          `json:"site_address"`
	Remarks       string          `json:"remarks"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []OrderItem     `json:"items"`
}

// OrderItem stores no price; orders are valued at current product prices.
type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	LineOrder int   `json:"line_order"`
}

// Input converts the order for the balance resolver.
func (o Order) Input() balance.OrderInput {
	items := make([]balance.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, balance.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return balance.OrderInput{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     balance.Status(o.Status),
		Items:      items,
		Advance:    o.AdvanceAmount,
	}
}

// BalanceView is an order's money position with valued lines.
type BalanceView struct {
	balance.OrderBalance
	Lines []balance.LineValue `json:"lines"`
}
