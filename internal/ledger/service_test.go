package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/shared"
)

type memoryLedgerRepo struct {
	collections  map[int64]Collection
	transactions map[int64]Transaction
	nextID       int64

	// Error injection
	linkErr error
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		collections:  make(map[int64]Collection),
		transactions: make(map[int64]Transaction),
	}
}

type memoryTx struct {
	repo         *memoryLedgerRepo
	collections  map[int64]Collection
	transactions map[int64]Transaction
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, collections: map[int64]Collection{}, transactions: map[int64]Transaction{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, c := range tx.collections {
		r.collections[id] = c
	}
	for id, t := range tx.transactions {
		r.transactions[id] = t
	}
	return nil
}

func (tx *memoryTx) InsertCollection(_ context.Context, c Collection) (int64, error) {
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	tx.collections[c.ID] = c
	return c.ID, nil
}

func (tx *memoryTx) InsertTransaction(_ context.Context, t Transaction) (int64, error) {
	tx.repo.nextID++
	t.ID = tx.repo.nextID
	tx.transactions[t.ID] = t
	return t.ID, nil
}

func (tx *memoryTx) LinkTransaction(_ context.Context, collectionID, transactionID int64) error {
	if tx.repo.linkErr != nil {
		return tx.repo.linkErr
	}
	c, ok := tx.collections[collectionID]
	if !ok {
		return ErrCollectionNotFound
	}
	c.TransactionID = &transactionID
	tx.collections[collectionID] = c
	return nil
}

func (r *memoryLedgerRepo) CreateTransaction(_ context.Context, t Transaction) (int64, error) {
	r.nextID++
	t.ID = r.nextID
	r.transactions[t.ID] = t
	return t.ID, nil
}

func (r *memoryLedgerRepo) GetCollection(_ context.Context, userID, id int64) (*Collection, error) {
	c, ok := r.collections[id]
	if !ok || c.UserID != userID {
		return nil, ErrCollectionNotFound
	}
	return &c, nil
}

func (r *memoryLedgerRepo) ListCollections(ctx context.Context, userID int64, req ListCollectionsRequest) ([]Collection, int, error) {
	all, _ := r.AllCollections(ctx, userID)
	var out []Collection
	for _, c := range all {
		if req.CustomerID != nil && c.CustomerID != *req.CustomerID {
			continue
		}
		if req.OrderID != nil && (c.OrderID == nil || *c.OrderID != *req.OrderID) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryLedgerRepo) AllCollections(_ context.Context, userID int64) ([]Collection, error) {
	var out []Collection
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.collections[id]; ok && c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) OrderCollections(ctx context.Context, userID, orderID int64) ([]Collection, error) {
	list, _, err := r.ListCollections(ctx, userID, ListCollectionsRequest{OrderID: &orderID})
	return list, err
}

func (r *memoryLedgerRepo) UpdateCollection(_ context.Context, userID, id int64, updates map[string]any) error {
	c, ok := r.collections[id]
	if !ok || c.UserID != userID {
		return ErrCollectionNotFound
	}
	if v, ok := updates["amount"]; ok {
		c.Amount = v.(decimal.Decimal)
	}
	if v, ok := updates["collection_date"]; ok {
		c.CollectionDate = v.(shared.Date)
	}
	if v, ok := updates["remarks"]; ok {
		c.Remarks = v.(string)
	}
	r.collections[id] = c
	return nil
}

func (r *memoryLedgerRepo) DeleteCollection(_ context.Context, userID, id int64) error {
	c, ok := r.collections[id]
	if !ok || c.UserID != userID {
		return ErrCollectionNotFound
	}
	delete(r.collections, id)
	return nil
}

func (r *memoryLedgerRepo) ListTransactions(_ context.Context, userID int64, customerID *int64) ([]Transaction, error) {
	var out []Transaction
	for id := int64(1); id <= r.nextID; id++ {
		t, ok := r.transactions[id]
		if !ok || t.UserID != userID {
			continue
		}
		if customerID != nil && t.CustomerID != *customerID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *memoryLedgerRepo) DeleteTransaction(_ context.Context, userID, id int64) error {
	t, ok := r.transactions[id]
	if !ok || t.UserID != userID {
		return ErrTransactionNotFound
	}
	delete(r.transactions, id)
	return nil
}

type stubCustomers struct{}

func (stubCustomers) Get(_ context.Context, userID, id int64) (*customers.Customer, error) {
	if userID == 1 && (id == 7 || id == 8) {
		return &customers.Customer{ID: id, UserID: 1, Name: "Sunita"}, nil
	}
	return nil, customers.ErrNotFound
}

type stubOrders map[int64]int64 // order id -> customer id

func (s stubOrders) OrderCustomer(_ context.Context, _ int64, orderID int64) (int64, error) {
	if c, ok := s[orderID]; ok {
		return c, nil
	}
	return 0, httpx.ErrNotFound
}

type memoryIdempotency struct{ keys map[string]bool }

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	delete(m.keys, module+":"+key)
	return nil
}

type recordingAudit struct{ actions []string }

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.actions = append(r.actions, log.Action)
	return nil
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(context.Context, int64) error {
	c.bumps++
	return nil
}

type fixture struct {
	repo  *memoryLedgerRepo
	idem  *memoryIdempotency
	audit *recordingAudit
	cache *countingInvalidator
	svc   *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:  newMemoryLedgerRepo(),
		idem:  &memoryIdempotency{},
		audit: &recordingAudit{},
		cache: &countingInvalidator{},
	}
	f.svc = NewService(f.repo, stubCustomers{}, stubOrders{100: 7, 200: 8}, f.idem, f.audit, f.cache)
	f.svc.now = func() time.Time { return time.Date(2024, 7, 1, 18, 30, 0, 0, time.UTC) }
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func int64Ptr(v int64) *int64 { return &v }

func TestRecordCollectionPairsTransaction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.svc.RecordCollection(ctx, 1, RecordCollectionInput{
		CustomerID: 7,
		OrderID:    int64Ptr(100),
		Amount:     dec("1500"),
		Remarks:    " cash ",
	})
	require.NoError(t, err)
	require.NotNil(t, c.TransactionID)
	assert.Equal(t, "2024-07-01", c.CollectionDate.String())

	stored := f.repo.collections[c.ID]
	require.NotNil(t, stored.TransactionID)
	txn := f.repo.transactions[*stored.TransactionID]
	assert.Equal(t, TxnPaid, txn.Type)
	assert.True(t, dec("1500").Equal(txn.Amount))
	assert.Equal(t, int64(7), txn.CustomerID)
	assert.Equal(t, c.CollectionDate, txn.Date)
	assert.Equal(t, "cash", txn.Note)
	require.NotNil(t, txn.CollectionID)
	assert.Equal(t, c.ID, *txn.CollectionID)

	assert.Equal(t, []string{"collection.recorded"}, f.audit.actions)
	assert.Equal(t, 1, f.cache.bumps)
}

func TestRecordCollectionIsAtomic(t *testing.T) {
	f := newFixture()
	f.repo.linkErr = errors.New("connection reset")
	ctx := context.Background()

	input := RecordCollectionInput{CustomerID: 7, Amount: dec("10"), IdempotencyKey: "k-1"}
	_, err := f.svc.RecordCollection(ctx, 1, input)
	require.Error(t, err)
	assert.Empty(t, f.repo.collections)
	assert.Empty(t, f.repo.transactions)
	assert.Empty(t, f.idem.keys)
	assert.Zero(t, f.cache.bumps)

	f.repo.linkErr = nil
	_, err = f.svc.RecordCollection(ctx, 1, input)
	require.NoError(t, err)
	assert.Len(t, f.repo.collections, 1)
	assert.Len(t, f.repo.transactions, 1)

	_, err = f.svc.RecordCollection(ctx, 1, input)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Len(t, f.repo.collections, 1)
}

func TestRecordCollectionValidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.RecordCollection(ctx, 1, RecordCollectionInput{CustomerID: 7, Amount: decimal.Zero})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.RecordCollection(ctx, 1, RecordCollectionInput{CustomerID: 7, OrderID: int64Ptr(200), Amount: dec("5")})
	assert.ErrorIs(t, err, ErrOrderCustomerMismatch)

	_, err = f.svc.RecordCollection(ctx, 1, RecordCollectionInput{CustomerID: 7, OrderID: int64Ptr(300), Amount: dec("5")})
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = f.svc.RecordCollection(ctx, 2, RecordCollectionInput{CustomerID: 7, Amount: dec("5")})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateAndDeleteCollectionLeaveTransaction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.svc.RecordCollection(ctx, 1, RecordCollectionInput{CustomerID: 7, Amount: dec("400")})
	require.NoError(t, err)

	newAmount := dec("450")
	updated, err := f.svc.UpdateCollection(ctx, 1, c.ID, UpdateCollectionInput{Amount: &newAmount})
	require.NoError(t, err)
	assert.True(t, dec("450").Equal(updated.Amount))
	assert.True(t, dec("400").Equal(f.repo.transactions[*c.TransactionID].Amount))

	zero := decimal.Zero
	_, err = f.svc.UpdateCollection(ctx, 1, c.ID, UpdateCollectionInput{Amount: &zero})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.NoError(t, f.svc.DeleteCollection(ctx, 1, c.ID))
	assert.Empty(t, f.repo.collections)
	assert.Len(t, f.repo.transactions, 1)
}

func TestStatementRunningBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateTransaction(ctx, 1, CreateTransactionInput{CustomerID: 7, Type: TxnUdhaar, Amount: dec("1000")})
	require.NoError(t, err)
	_, err = f.svc.RecordCollection(ctx, 1, RecordCollectionInput{CustomerID: 7, Amount: dec("300")})
	require.NoError(t, err)
	_, err = f.svc.CreateTransaction(ctx, 1, CreateTransactionInput{CustomerID: 7, Type: TxnUdhaar, Amount: dec("50.5")})
	require.NoError(t, err)
	_, err = f.svc.CreateTransaction(ctx, 1, CreateTransactionInput{CustomerID: 8, Type: TxnUdhaar, Amount: dec("999")})
	require.NoError(t, err)

	_, err = f.svc.CreateTransaction(ctx, 1, CreateTransactionInput{CustomerID: 7, Type: "refund", Amount: dec("1")})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	st, err := f.svc.Statement(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "Sunita", st.CustomerName)
	require.Len(t, st.Lines, 3)
	assert.True(t, dec("1000").Equal(st.Lines[0].Balance))
	assert.True(t, dec("700").Equal(st.Lines[1].Balance))
	assert.True(t, dec("750.5").Equal(st.Lines[2].Balance))
	assert.True(t, dec("1050.5").Equal(st.TotalUdhaar))
	assert.True(t, dec("300").Equal(st.TotalPaid))
	assert.True(t, dec("750.5").Equal(st.Balance))

	gone, err := f.svc.Statement(ctx, 1, 99)
	require.NoError(t, err)
	assert.Equal(t, balance.UnknownCustomerLabel, gone.CustomerName)
	assert.Empty(t, gone.Lines)
}

func TestPaymentsFeedAggregation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, in := range []RecordCollectionInput{
		{CustomerID: 7, OrderID: int64Ptr(100), Amount: dec("100")},
		{CustomerID: 7, OrderID: int64Ptr(100), Amount: dec("50")},
		{CustomerID: 7, Amount: dec("25")},
		{CustomerID: 8, OrderID: int64Ptr(200), Amount: dec("70")},
	} {
		_, err := f.svc.RecordCollection(ctx, 1, in)
		require.NoError(t, err)
	}

	payments, err := f.svc.Payments(ctx, 1)
	require.NoError(t, err)
	ledger := balance.Aggregate(payments)
	assert.True(t, dec("150").Equal(ledger.ForOrder(100)))
	assert.True(t, dec("175").Equal(ledger.ForCustomer(7)))
	assert.True(t, dec("70").Equal(ledger.ForCustomer(8)))

	orderPayments, err := f.svc.OrderPayments(ctx, 1, 100)
	require.NoError(t, err)
	assert.Len(t, orderPayments, 2)
}

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithUserID(req.Context(), 1)))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestHandlerCollectionIdempotency(t *testing.T) {
	router := newTestRouter(newFixture().svc)
	body := `{"customer_id":7,"amount":"250.00","collection_date":"2024-06-30"}`

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post()
	require.Equal(t, http.StatusCreated, rec.Code)
	var c Collection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "2024-06-30", c.CollectionDate.String())

	assert.Equal(t, http.StatusConflict, post().Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/7/statement", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st Statement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Len(t, st.Lines, 1)
	assert.True(t, dec("-250").Equal(st.Balance))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"customer_id":7,"type":"loan","amount":"5"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
