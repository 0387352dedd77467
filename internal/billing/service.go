package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

const DefaultCurrencySymbol = "₹"

type Service struct {
	repo   Repository
	symbol string
	now    func() time.Time
}

func NewService(repo Repository, currencySymbol string) *Service {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}
	return &Service{repo: repo, symbol: currencySymbol, now: time.Now}
}

// Create stores a bill. The total is always computed from the items.
func (s *Service) Create(ctx context.Context, userID int64, input CreateBillInput) (*BillView, error) {
	bill, err := s.prepare(userID, input)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertBill(ctx, bill)
		if err != nil {
			return fmt.Errorf("insert bill: %w", err)
		}
		bill.ID = id
		for i := range bill.Items {
			bill.Items[i].BillID = id
			if err := tx.InsertItem(ctx, bill.Items[i]); err != nil {
				return fmt.Errorf("insert bill item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := s.view(bill)
	return &view, nil
}

func (s *Service) prepare(userID int64, input CreateBillInput) (Bill, error) {
	fields := httpx.FieldErrors{}
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		fields["customer_name"] = "is required"
	}
	if len(input.Items) == 0 {
		fields["items"] = "at least one item is required"
	}

	bill := Bill{
		UserID:        userID,
		CustomerName:  name,
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		BillDate:      input.BillDate,
	}
	if bill.BillDate.IsZero() {
		bill.BillDate = shared.NewDate(s.now())
	}
	for i, in := range input.Items {
		item := BillItem{
			Name:      strings.TrimSpace(in.Name),
			Quantity:  in.Quantity,
			Price:     in.Price.Round(2),
			LineOrder: i + 1,
		}
		if item.Name == "" {
			fields[fmt.Sprintf("items[%d].name", i)] = "is required"
		}
		if item.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be greater than 0"
		}
		if item.Price.IsNegative() {
			fields[fmt.Sprintf("items[%d].price", i)] = "must not be negative"
		}
		bill.Items = append(bill.Items, item)
	}
	if len(fields) > 0 {
		return Bill{}, fields
	}
	bill.Total = computeTotal(bill.Items)
	return bill, nil
}

func computeTotal(items []BillItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		items[i].Amount = items[i].Price.Mul(decimal.NewFromInt(items[i].Quantity))
		total = total.Add(items[i].Amount)
	}
	return total
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*BillView, error) {
	bill, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	computeTotal(bill.Items)
	view := s.view(*bill)
	return &view, nil
}

func (s *Service) List(ctx context.Context, userID int64, req ListBillsRequest) ([]BillView, int, error) {
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	bills, total, err := s.repo.List(ctx, userID, req)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BillView, 0, len(bills))
	for _, b := range bills {
		out = append(out, s.view(b))
	}
	return out, total, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return nil
}

func (s *Service) view(b Bill) BillView {
	return BillView{
		Bill:         b,
		TotalInWords: balance.AmountInWords(b.Total),
		TotalDisplay: balance.FormatMoney(s.symbol, b.Total),
	}
}
