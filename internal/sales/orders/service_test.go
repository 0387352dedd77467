package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/shared"
)

type mockRepository struct {
	orders map[int64]*Order
	nextID int64

	// Error injection
	insertItemsError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: make(map[int64]*Order), nextID: 1}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := make(map[int64]Order, len(m.orders))
	for id, o := range m.orders {
		snapshot[id] = *o
	}
	if err := fn(ctx, m); err != nil {
		m.orders = make(map[int64]*Order, len(snapshot))
		for id, o := range snapshot {
			o := o
			m.orders[id] = &o
		}
		return err
	}
	return nil
}

func (m *mockRepository) Get(_ context.Context, userID, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *mockRepository) List(ctx context.Context, userID int64, req ListOrdersRequest) ([]Order, int, error) {
	all, _ := m.ListAll(ctx, userID)
	var out []Order
	for _, o := range all {
		if req.CustomerID != nil && o.CustomerID != *req.CustomerID {
			continue
		}
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepository) ListAll(_ context.Context, userID int64) ([]Order, error) {
	var out []Order
	for id := int64(1); id < m.nextID; id++ {
		if o, ok := m.orders[id]; ok && o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, order Order) (int64, error) {
	order.ID = m.nextID
	m.nextID++
	m.orders[order.ID] = &order
	return order.ID, nil
}

func (m *mockRepository) Update(_ context.Context, userID, id int64, updates map[string]any) error {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return ErrNotFound
	}
	if v, ok := updates["customer_id"]; ok {
		o.CustomerID = v.(int64)
	}
	if v, ok := updates["job_date"]; ok {
		o.JobDate = v.(shared.Date)
	}
	if v, ok := updates["remarks"]; ok {
		o.Remarks = v.(string)
	}
	if v, ok := updates["advance_amount"]; ok {
		o.AdvanceAmount = v.(decimal.Decimal)
	}
	return nil
}

func (m *mockRepository) InsertItems(_ context.Context, orderID int64, items []OrderItem) error {
	if m.insertItemsError != nil {
		return m.insertItemsError
	}
	o := m.orders[orderID]
	for _, it := range items {
		it.OrderID = orderID
		o.Items = append(o.Items, it)
	}
	return nil
}

func (m *mockRepository) DeleteItems(_ context.Context, orderID int64) error {
	m.orders[orderID].Items = nil
	return nil
}

func (m *mockRepository) UpdateStatus(_ context.Context, userID, id int64, from, to OrderStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockRepository) Delete(_ context.Context, userID, id int64) error {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

type stubCustomers map[int64]int64 // customer id -> owner

func (s stubCustomers) Get(_ context.Context, userID, id int64) (*customers.Customer, error) {
	if owner, ok := s[id]; ok && owner == userID {
		return &customers.Customer{ID: id, UserID: userID, Name: "Ramesh"}, nil
	}
	return nil, customers.ErrNotFound
}

type stubPrices balance.PriceBook

func (s stubPrices) PriceBook(context.Context, int64) (balance.PriceBook, error) {
	return balance.PriceBook(s), nil
}

type stubPayments []balance.Payment

func (s stubPayments) OrderPayments(_ context.Context, _ int64, orderID int64) ([]balance.Payment, error) {
	var out []balance.Payment
	for _, p := range s {
		if p.OrderID != nil && *p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingAudit struct{ logs []shared.AuditLog }

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newTestService(repo Repository, audit AuditRecorder) *Service {
	prices := stubPrices(balance.NewPriceBook(
		balance.PriceEntry{ProductID: 1, Price: decimal.NewFromInt(100)},
		balance.PriceEntry{ProductID: 2, Price: decimal.RequireFromString("12.50")},
	))
	return NewService(repo, stubCustomers{7: 1}, prices, audit, nil)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateOrderValidatesAdvanceAgainstValuation(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	ctx := context.Background()

	req := OrderRequest{
		CustomerID:    7,
		Items:         []OrderItemReq{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 4}},
		AdvanceAmount: dec("250.01"),
	}
	_, err := svc.Create(ctx, 1, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAdvanceExceedsTotal)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	req.AdvanceAmount = dec("250")
	order, err := svc.Create(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 1, order.Items[0].LineOrder)
	assert.Equal(t, 2, order.Items[1].LineOrder)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, OrderRequest{CustomerID: 7})
	var fields httpx.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "items")

	_, err = svc.Create(ctx, 1, OrderRequest{
		CustomerID:    7,
		Items:         []OrderItemReq{{ProductID: 1, Quantity: 0}},
		AdvanceAmount: dec("-1"),
	})
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "items[0].quantity")
	assert.Contains(t, fields, "advance_amount")

	_, err = svc.Create(ctx, 1, OrderRequest{CustomerID: 7, Items: []OrderItemReq{{ProductID: 99, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrUnknownProduct)

	_, err = svc.Create(ctx, 2, OrderRequest{CustomerID: 7, Items: []OrderItemReq{{ProductID: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateOrderRollsBackOnItemFailure(t *testing.T) {
	repo := newMockRepository()
	repo.insertItemsError = errors.New("connection reset")
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), 1, OrderRequest{CustomerID: 7, Items: []OrderItemReq{{ProductID: 1, Quantity: 1}}})
	require.Error(t, err)
	assert.Empty(t, repo.orders)
}

func TestUpdateOrderReplacesItemsInAnyStatus(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	order, err := svc.Create(ctx, 1, OrderRequest{CustomerID: 7, Items: []OrderItemReq{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, 1, order.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, 1, order.ID, OrderRequest{
		CustomerID:    7,
		Items:         []OrderItemReq{{ProductID: 2, Quantity: 8}},
		AdvanceAmount: dec("100"),
		Remarks:       "  second floor ",
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, int64(2), updated.Items[0].ProductID)
	assert.Equal(t, "second floor", updated.Remarks)
	assert.Equal(t, OrderStatusDelivered, updated.Status)

	_, err = svc.Update(ctx, 1, order.ID, OrderRequest{
		CustomerID:    7,
		Items:         []OrderItemReq{{ProductID: 2, Quantity: 8}},
		AdvanceAmount: dec("100.01"),
	})
	assert.ErrorIs(t, err, ErrAdvanceExceedsTotal)
}

func TestMarkDeliveredIsOneWay(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(newMockRepository(), audit)
	ctx := context.Background()

	order, err := svc.Create(ctx, 1, OrderRequest{CustomerID: 7, Items: []OrderItemReq{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)

	delivered, err := svc.MarkDelivered(ctx, 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDelivered, delivered.Status)

	_, err = svc.MarkDelivered(ctx, 1, order.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "order.delivered", audit.logs[0].Action)
	assert.Equal(t, "1", audit.logs[0].EntityID)
}

func TestBalanceFollowsStatus(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	ctx := context.Background()

	order, err := svc.Create(ctx, 1, OrderRequest{
		CustomerID:    7,
		Items:         []OrderItemReq{{ProductID: 1, Quantity: 3}},
		AdvanceAmount: dec("50"),
	})
	require.NoError(t, err)

	other := int64(99)
	svc.SetPaymentSource(stubPayments{
		{ID: 1, CustomerID: 7, OrderID: &order.ID, Amount: dec("100")},
		{ID: 2, CustomerID: 7, OrderID: &other, Amount: dec("500")},
		{ID: 3, CustomerID: 7, Amount: dec("40")},
	})

	view, err := svc.Balance(ctx, 1, order.ID)
	require.NoError(t, err)
	assert.True(t, dec("300").Equal(view.Total))
	assert.True(t, dec("100").Equal(view.Collected))
	assert.True(t, dec("150").Equal(view.Pending))
	assert.True(t, view.Udhaar.IsZero())
	assert.Equal(t, balance.BucketPending, view.Bucket())
	require.Len(t, view.Lines, 1)

	_, err = svc.MarkDelivered(ctx, 1, order.ID)
	require.NoError(t, err)
	view, err = svc.Balance(ctx, 1, order.ID)
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(view.Udhaar))
	assert.True(t, view.Pending.IsZero())
	assert.Equal(t, balance.BucketUdhaar, view.Bucket())
}

func TestDeleteOrderScopedToOwner(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	ctx := context.Background()

	order, err := svc.Create(ctx, 1, OrderRequest{CustomerID: 7, Items: []OrderItemReq{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 2, order.ID), httpx.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, 1, order.ID))
	_, err = svc.Get(ctx, 1, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestRouter(svc *Service, userID int64) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithUserID(req.Context(), userID)))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestHandlerOrderLifecycle(t *testing.T) {
	router := newTestRouter(newTestService(newMockRepository(), nil), 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"customer_id":7,"items":[{"product_id":1,"quantity":2}],"job_date":"2024-05-01","advance_amount":"20"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_date":"2024-05-01"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"customer_id":7,"items":[]}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/1/deliver", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/1/deliver", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/1/balance", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"udhaar":"180"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?status=delivered", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?status=lost", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
