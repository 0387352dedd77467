package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/shared"
)

// Dashboard groups resolved orders into the pending, udhaar and history tabs.
type Dashboard struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Pending     []OrderRow    `json:"pending"`
	Udhaar      []OrderRow    `json:"udhaar"`
	History     []OrderRow    `json:"history"`
	Customers   []CustomerRow `json:"customers"`
	Totals      Totals        `json:"totals"`
}

type OrderRow struct {
	OrderID         int64           `json:"order_id"`
	CustomerID      int64           `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	Status          string          `json:"status"`
	JobDate         shared.Date     `json:"job_date"`
	Assignee        string          `json:"assignee"`
	SiteAddress     string          `json:"site_address"`
	Items           []ItemRow       `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Advance         decimal.Decimal `json:"advance"`
	Collected       decimal.Decimal `json:"collected"`
	Pending         decimal.Decimal `json:"pending"`
	Udhaar          decimal.Decimal `json:"udhaar"`
	UnknownProducts bool            `json:"unknown_products,omitempty"`
}

type ItemRow struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

type CustomerRow struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Udhaar       decimal.Decimal `json:"udhaar"`
	Pending      decimal.Decimal `json:"pending"`
	Total        decimal.Decimal `json:"total"`
	Orders       int             `json:"orders"`
	EarliestDue  *shared.Date    `json:"earliest_due"`
}

type Totals struct {
	Orders    int             `json:"orders"`
	Pending   decimal.Decimal `json:"pending"`
	Udhaar    decimal.Decimal `json:"udhaar"`
	Collected decimal.Decimal `json:"collected"`
}
