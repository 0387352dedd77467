package quotations

import (
	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/shared"
)

type CreateQuotationRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0"`
	Remarks    string `json:"remarks" validate:"max=2000"`
}

type UpdateQuotationRequest struct {
	CustomerID *int64  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	ProductID  *int64  `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Quantity   *int64  `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Remarks    *string `json:"remarks,omitempty" validate:"omitempty,max=2000"`
}

// ConvertRequest seeds the order created from an approved quotation.
type ConvertRequest struct {
	Advance     decimal.Decimal `json:"advance_amount"`
	JobDate     shared.Date     `json:"job_date"`
	Assignee    string          `json:"assignee" validate:"max=200"`
	SiteAddress string          `json:"site_address" validate:"max=500"`
	Remarks     string          `json:"remarks" validate:"max=2000"`
}

type ListQuotationsRequest struct {
	CustomerID *int64
	Status     *QuotationStatus
	Limit      int
	Offset     int
}
