package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/shared"
)

var (
	ErrInvalidStatus       = fmt.Errorf("invalid status transition: %w", httpx.ErrConflict)
	ErrAdvanceExceedsTotal = fmt.Errorf("advance exceeds order total: %w", httpx.ErrValidation)
	ErrUnknownProduct      = fmt.Errorf("unknown product: %w", httpx.ErrValidation)
)

type CustomerReader interface {
	Get(ctx context.Context, userID, id int64) (*customers.Customer, error)
}

type PriceSource interface {
	PriceBook(ctx context.Context, userID int64) (balance.PriceBook, error)
}

// PaymentSource lists the collections recorded against one order.
type PaymentSource interface {
	OrderPayments(ctx context.Context, userID, orderID int64) ([]balance.Payment, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo      Repository
	customers CustomerReader
	prices    PriceSource
	payments  PaymentSource
	audit     AuditRecorder
	cache     shared.Invalidator
}

func NewService(repo Repository, customers CustomerReader, prices PriceSource, audit AuditRecorder, cache shared.Invalidator) *Service {
	if cache == nil {
		cache = shared.NopInvalidator{}
	}
	return &Service{repo: repo, customers: customers, prices: prices, audit: audit, cache: cache}
}

// SetPaymentSource wires the collection ledger, which itself depends on
// orders.
func (s *Service) SetPaymentSource(p PaymentSource) {
	s.payments = p
}

func (s *Service) Create(ctx context.Context, userID int64, req OrderRequest) (*Order, error) {
	order, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	order.Status = OrderStatusPending

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		id, err := tx.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id
		return tx.InsertItems(ctx, id, order.Items)
	})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, orderID)
}

// Update replaces the order's fields and item set. Any status may be edited.
func (s *Service) Update(ctx context.Context, userID, id int64, req OrderRequest) (*Order, error) {
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	order, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"customer_id":    order.CustomerID,
		"job_date":       order.JobDate,
		"assignee":       order.Assignee,
		"site_address":   order.SiteAddress,
		"remarks":        order.Remarks,
		"advance_amount": order.AdvanceAmount,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Update(ctx, userID, id, updates); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := tx.DeleteItems(ctx, id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return tx.InsertItems(ctx, id, order.Items)
	})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, id)
}

// prepare checks the request against the customer and current prices and
// builds the order to persist.
func (s *Service) prepare(ctx context.Context, userID int64, req OrderRequest) (Order, error) {
	fields := httpx.FieldErrors{}
	if len(req.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			fields[fmt.Sprintf("items[%d].product_id", i)] = "is required"
		}
		if it.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be greater than 0"
		}
	}
	if req.AdvanceAmount.IsNegative() {
		fields["advance_amount"] = "must not be negative"
	}
	if len(fields) > 0 {
		return Order{}, fields
	}

	if _, err := s.customers.Get(ctx, userID, req.CustomerID); err != nil {
		return Order{}, fmt.Errorf("verify customer: %w", err)
	}

	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return Order{}, fmt.Errorf("load prices: %w", err)
	}

	order := Order{
		UserID:        userID,
		CustomerID:    req.CustomerID,
		JobDate:       req.JobDate,
		Assignee:      strings.TrimSpace(req.Assignee),
		SiteAddress:   strings.TrimSpace(req.SiteAddress),
		Remarks:       strings.TrimSpace(req.Remarks),
		AdvanceAmount: req.AdvanceAmount.Round(2),
	}
	lines := make([]balance.LineItem, 0, len(req.Items))
	for i, it := range req.Items {
		order.Items = append(order.Items, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, LineOrder: i + 1})
		lines = append(lines, balance.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	valuation := balance.ValueOrder(lines, prices)
	if len(valuation.Unknown) > 0 {
		return Order{}, fmt.Errorf("%w: %v", ErrUnknownProduct, valuation.Unknown)
	}
	if !balance.AdvanceWithinTotal(order.AdvanceAmount, valuation.Total) {
		return Order{}, fmt.Errorf("%w: advance %s, total %s", ErrAdvanceExceedsTotal,
			order.AdvanceAmount.StringFixed(2), valuation.Total.StringFixed(2))
	}
	return order, nil
}

// MarkDelivered moves a pending order to delivered. The change is one-way.
func (s *Service) MarkDelivered(ctx context.Context, userID, id int64) (*Order, error) {
	order, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != OrderStatusPending {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidStatus, order.Status)
	}

	ok, err := s.repo.UpdateStatus(ctx, userID, id, OrderStatusPending, OrderStatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidStatus)
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  userID,
			Action:   "order.delivered",
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": string(OrderStatusPending), "to": string(OrderStatusDelivered)},
		}); err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*Order, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID int64, req ListOrdersRequest) ([]Order, int, error) {
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", *req.Status, httpx.ErrValidation)
	}
	return s.repo.List(ctx, userID, req)
}

// All returns every order of the user with its items.
func (s *Service) All(ctx context.Context, userID int64) ([]Order, error) {
	return s.repo.ListAll(ctx, userID)
}

// Delete removes the order. Collections recorded against it are kept and
// still count towards the customer.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return s.cache.Bump(ctx, userID)
}

// OrderCustomer returns the customer an order belongs to.
func (s *Service) OrderCustomer(ctx context.Context, userID, orderID int64) (int64, error) {
	order, err := s.repo.Get(ctx, userID, orderID)
	if err != nil {
		return 0, err
	}
	return order.CustomerID, nil
}

// Balance resolves the outstanding amount of one order at current prices.
func (s *Service) Balance(ctx context.Context, userID, id int64) (*BalanceView, error) {
	order, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	prices, err := s.prices.PriceBook(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	var payments []balance.Payment
	if s.payments != nil {
		payments, err = s.payments.OrderPayments(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("load collections: %w", err)
		}
	}

	in := order.Input()
	return &BalanceView{
		OrderBalance: balance.ResolveOrder(in, prices, balance.Aggregate(payments)),
		Lines:        balance.ValueOrder(in.Items, prices).Lines,
	}, nil
}
