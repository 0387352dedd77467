package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/shared"
)

// Bill is a standalone invoice. Customer details are copied in and not
// linked to the customer records.
type Bill struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"-"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	BillDate      shared.Date     `json:"bill_date"`
	Items         []BillItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type BillItem struct {
	ID        int64           `json:"id"`
	BillID    int64           `json:"bill_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	LineOrder int             `json:"line_order"`
}

// BillView adds display renderings of the total.
type BillView struct {
	Bill
	TotalInWords string `json:"total_in_words"`
	TotalDisplay string `json:"total_display"`
}

type CreateBillInput struct {
	CustomerName  string          `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string          `json:"customer_phone" validate:"max=40"`
	BillDate      shared.Date     `json:"bill_date"`
	Items         []BillItemInput `json:"items" validate:"required,min=1,dive"`
}

type BillItemInput struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Quantity int64           `json:"quantity" validate:"required,gt=0"`
	Price    decimal.Decimal `json:"price"`
}

type ListBillsRequest struct {
	Search string
	Limit  int
	Offset int
}
