package quotations

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/sales/orders"
	"github.com/khata-app/khata/internal/shared"
)

var (
	ErrInvalidStatus       = fmt.Errorf("invalid status transition: %w", httpx.ErrConflict)
	ErrAlreadyConverted    = fmt.Errorf("quotation already converted: %w", httpx.ErrConflict)
	ErrAdvanceExceedsTotal = orders.ErrAdvanceExceedsTotal
)

type Service struct {
	repo      Repository
	customers orders.CustomerReader
	prices    orders.PriceSource
	audit     orders.AuditRecorder
	cache     shared.Invalidator
}

func NewService(repo Repository, customers orders.CustomerReader, prices orders.PriceSource, audit orders.AuditRecorder, cache shared.Invalidator) *Service {
	if cache == nil {
		cache = shared.NopInvalidator{}
	}
	return &Service{repo: repo, customers: customers, prices: prices, audit: audit, cache: cache}
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateQuotationRequest) (*QuotationWithTotal, error) {
	if err := s.validateRefs(ctx, userID, req.CustomerID, req.ProductID); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, httpx.FieldErrors{"quantity": "must be greater than 0"}
	}

	q := Quotation{
		UserID:     userID,
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Status:     QuotationStatusPending,
		Remarks:    strings.TrimSpace(req.Remarks),
	}
	id, err := s.repo.Create(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// Update edits a quotation that is still pending.
func (s *Service) Update(ctx context.Context, userID, id int64, req UpdateQuotationRequest) (*QuotationWithTotal, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != QuotationStatusPending {
		return nil, fmt.Errorf("%w: can only edit pending quotations", ErrInvalidStatus)
	}

	customerID, productID := existing.CustomerID, existing.ProductID
	updates := make(map[string]any)
	if req.CustomerID != nil {
		customerID = *req.CustomerID
		updates["customer_id"] = customerID
	}
	if req.ProductID != nil {
		productID = *req.ProductID
		updates["product_id"] = productID
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, httpx.FieldErrors{"quantity": "must be greater than 0"}
		}
		updates["quantity"] = *req.Quantity
	}
	if req.Remarks != nil {
		updates["remarks"] = strings.TrimSpace(*req.Remarks)
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID, id)
	}
	if err := s.validateRefs(ctx, userID, customerID, productID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, userID, id, updates); err != nil {
		return nil, fmt.Errorf("update quotation: %w", err)
	}
	return s.Get(ctx, userID, id)
}

func (s *Service) validateRefs(ctx context.Context, userID, customerID, productID int64) error {
	if _, err := s.customers.Get(ctx, userID, customerID); err != nil {
		return fmt.Errorf("verify customer: %w", err)
	}
	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if _, ok := prices.Price(productID); !ok {
		return fmt.Errorf("%w: %d", orders.ErrUnknownProduct, productID)
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, userID, id int64) (*QuotationWithTotal, error) {
	return s.transition(ctx, userID, id, QuotationStatusApproved)
}

func (s *Service) Reject(ctx context.Context, userID, id int64) (*QuotationWithTotal, error) {
	return s.transition(ctx, userID, id, QuotationStatusRejected)
}

func (s *Service) transition(ctx context.Context, userID, id int64, to QuotationStatus) (*QuotationWithTotal, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != QuotationStatusPending {
		return nil, fmt.Errorf("%w: quotation is already %s", ErrInvalidStatus, existing.Status)
	}

	ok, err := s.repo.UpdateStatus(ctx, userID, id, QuotationStatusPending, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: quotation changed concurrently", ErrInvalidStatus)
	}
	if err := s.record(ctx, userID, id, "quotation."+string(to), nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Convert creates a pending order from an approved quotation. The order
// insert and the quotation link happen in one transaction.
func (s *Service) Convert(ctx context.Context, userID, id int64, req ConvertRequest) (*Conversion, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.ConvertedToOrder {
		return nil, ErrAlreadyConverted
	}
	if existing.Status != QuotationStatusApproved {
		return nil, fmt.Errorf("%w: can only convert approved quotations", ErrInvalidStatus)
	}

	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	price, known := prices.Price(existing.ProductID)
	if !known {
		return nil, fmt.Errorf("%w: %d", orders.ErrUnknownProduct, existing.ProductID)
	}

	advance := req.Advance.Round(2)
	total := balance.QuotationTotal(price, existing.Quantity)
	if !balance.AdvanceWithinTotal(advance, total) {
		return nil, fmt.Errorf("%w: advance %s, total %s", ErrAdvanceExceedsTotal, advance.StringFixed(2), total.StringFixed(2))
	}

	order := orders.Order{
		UserID:        userID,
		CustomerID:    existing.CustomerID,
		Status:        orders.OrderStatusPending,
		JobDate:       req.JobDate,
		Assignee:      strings.TrimSpace(req.Assignee),
		SiteAddress:   strings.TrimSpace(req.SiteAddress),
		Remarks:       strings.TrimSpace(req.Remarks),
		AdvanceAmount: advance,
	}
	if order.Remarks == "" {
		order.Remarks = existing.Remarks
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		orderRepo := tx.Orders()
		created, err := orderRepo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		items := []orders.OrderItem{{ProductID: existing.ProductID, Quantity: existing.Quantity, LineOrder: 1}}
		if err := orderRepo.InsertItems(ctx, created, items); err != nil {
			return err
		}
		ok, err := tx.MarkConverted(ctx, userID, id, created)
		if err != nil {
			return fmt.Errorf("link quotation: %w", err)
		}
		if !ok {
			return ErrAlreadyConverted
		}
		orderID = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.record(ctx, userID, id, "quotation.converted", map[string]any{"order_id": orderID}); err != nil {
		return nil, err
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	created, err := s.repo.Orders().Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	opening := balance.ConversionSeed(total, advance)
	opening.OrderID = created.ID
	opening.CustomerID = created.CustomerID
	return &Conversion{Order: created, Opening: opening}, nil
}

// Preview values quantity units of a product at its current price and the
// opening balance an order with the given advance would start from. Unknown
// products value at 0.
func (s *Service) Preview(ctx context.Context, userID, productID, quantity int64, advance decimal.Decimal) (*Preview, error) {
	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	price, known := prices.Price(productID)
	total := balance.QuotationTotal(price, quantity)
	advance = advance.Round(2)
	return &Preview{
		ProductID:           productID,
		Quantity:            quantity,
		UnitPrice:           price,
		Total:               total,
		UnknownProduct:      !known,
		AdvanceExceedsTotal: !balance.AdvanceWithinTotal(advance, total),
		Opening:             balance.ConversionSeed(total, advance),
	}, nil
}

func (s *Service) record(ctx context.Context, userID, id int64, action string, meta map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "quotation",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

// Get returns the quotation valued at the current product price.
func (s *Service) Get(ctx context.Context, userID, id int64) (*QuotationWithTotal, error) {
	q, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	view := withTotal(*q, prices)
	return &view, nil
}

func (s *Service) List(ctx context.Context, userID int64, req ListQuotationsRequest) ([]QuotationWithTotal, int, error) {
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", *req.Status, httpx.ErrValidation)
	}
	list, total, err := s.repo.List(ctx, userID, req)
	if err != nil {
		return nil, 0, err
	}
	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("load prices: %w", err)
	}
	out := make([]QuotationWithTotal, 0, len(list))
	for _, q := range list {
		out = append(out, withTotal(q, prices))
	}
	return out, total, nil
}

// Delete removes the quotation. An order converted from it is kept.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	return nil
}

func withTotal(q Quotation, prices balance.PriceBook) QuotationWithTotal {
	price, known := prices.Price(q.ProductID)
	return QuotationWithTotal{
		Quotation:      q,
		UnitPrice:      price,
		Total:          balance.QuotationTotal(price, q.Quantity),
		UnknownProduct: !known,
	}
}
