package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/shared"
)

// TxnType enumerates khata entry kinds.
type TxnType string

const (
	TxnUdhaar TxnType = "udhaar"
	TxnPaid   TxnType = "paid"
)

func (t TxnType) Valid() bool {
	return t == TxnUdhaar || t == TxnPaid
}

// Collection is money received from a customer, optionally against an order.
type Collection struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"-"`
	CustomerID     int64           `json:"customer_id"`
	OrderID        *int64          `json:"order_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	CollectionDate shared.Date     `json:"collection_date"`
	Remarks        string          `json:"remarks"`
	TransactionID  *int64          `json:"transaction_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Transaction is one khata entry.
type Transaction struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"-"`
	CustomerID   int64           `json:"customer_id"`
	Type         TxnType         `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Date         shared.Date     `json:"date"`
	Note         string          `json:"note"`
	CollectionID *int64          `json:"collection_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RecordCollectionInput is the body of POST /collections.
type RecordCollectionInput struct {
	CustomerID     int64           `json:"customer_id" validate:"required,gt=0"`
	OrderID        *int64          `json:"order_id,omitempty" validate:"omitempty,gt=0"`
	Amount         decimal.Decimal `json:"amount"`
	CollectionDate shared.Date     `json:"collection_date"`
	Remarks        string          `json:"remarks" validate:"max=2000"`
	IdempotencyKey string          `json:"-"`
}

// UpdateCollectionInput changes the collection only.
type UpdateCollectionInput struct {
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	CollectionDate *shared.Date     `json:"collection_date,omitempty"`
	Remarks        *string          `json:"remarks,omitempty"`
}

// CreateTransactionInput is a manual khata entry.
type CreateTransactionInput struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	Type       TxnType         `json:"type" validate:"required,oneof=udhaar paid"`
	Amount     decimal.Decimal `json:"amount"`
	Date       shared.Date     `json:"date"`
	Note       string          `json:"note" validate:"max=2000"`
}

// ListCollectionsRequest filters collections.
type ListCollectionsRequest struct {
	CustomerID *int64
	OrderID    *int64
	Limit      int
	Offset     int
}

// StatementLine is a transaction with the running balance after it.
type StatementLine struct {
	Transaction
	Balance decimal.Decimal `json:"balance"`
}

// Statement is the khata of one customer.
type Statement struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Lines        []StatementLine `json:"lines"`
	TotalUdhaar  decimal.Decimal `json:"total_udhaar"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Balance      decimal.Decimal `json:"balance"`
}
