package orders

import (
	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/shared"
)

// OrderRequest is used for both create and full update.
type OrderRequest struct {
	CustomerID    int64           `json:"customer_id" validate:"required,gt=0"`
	Items         []OrderItemReq  `json:"items" validate:"required,min=1,dive"`
	JobDate       shared.Date     `json:"job_date"`
	Assignee      string          `json:"assignee" validate:"max=200"`
	SiteAddress   string          `json:"site_address" validate:"max=500"`
	Remarks       string          `json:"remarks" validate:"max=2000"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
}

type OrderItemReq struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type ListOrdersRequest struct {
	CustomerID *int64
	Status     *OrderStatus
	Limit      int
	Offset     int
}
