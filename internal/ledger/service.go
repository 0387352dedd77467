package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/shared"
)

const idempotencyModule = "ledger.collection"

// ErrOrderCustomerMismatch is returned when a collection names an order of
// another customer.
var ErrOrderCustomerMismatch = fmt.Errorf("order belongs to another customer: %w", httpx.ErrValidation)

// RepositoryPort defines data access methods for the ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateTransaction(ctx context.Context, t Transaction) (int64, error)
	GetCollection(ctx context.Context, userID, id int64) (*Collection, error)
	ListCollections(ctx context.Context, userID int64, req ListCollectionsRequest) ([]Collection, int, error)
	AllCollections(ctx context.Context, userID int64) ([]Collection, error)
	OrderCollections(ctx context.Context, userID, orderID int64) ([]Collection, error)
	UpdateCollection(ctx context.Context, userID, id int64, updates map[string]any) error
	DeleteCollection(ctx context.Context, userID, id int64) error
	ListTransactions(ctx context.Context, userID int64, customerID *int64) ([]Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

type CustomerReader interface {
	Get(ctx context.Context, userID, id int64) (*customers.Customer, error)
}

// OrderLookup resolves the customer of an order.
type OrderLookup interface {
	OrderCustomer(ctx context.Context, userID, orderID int64) (int64, error)
}

type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles collections and khata entries.
type Service struct {
	repo        RepositoryPort
	customers   CustomerReader
	orders      OrderLookup
	idempotency IdempotencyStore
	audit       AuditRecorder
	cache       shared.Invalidator
	now         func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, customers CustomerReader, orders OrderLookup, idem IdempotencyStore, audit AuditRecorder, cache shared.Invalidator) *Service {
	if cache == nil {
		cache = shared.NopInvalidator{}
	}
	return &Service{
		repo:        repo,
		customers:   customers,
		orders:      orders,
		idempotency: idem,
		audit:       audit,
		cache:       cache,
		now:         time.Now,
	}
}

// RecordCollection stores the collection and its paired paid entry in one
// transaction and links them.
func (s *Service) RecordCollection(ctx context.Context, userID int64, input RecordCollectionInput) (*Collection, error) {
	input.Amount = input.Amount.Round(2)
	if !input.Amount.IsPositive() {
		return nil, httpx.FieldErrors{"amount": "must be greater than 0"}
	}
	if _, err := s.customers.Get(ctx, userID, input.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}
	if input.OrderID != nil {
		owner, err := s.orders.OrderCustomer(ctx, userID, *input.OrderID)
		if err != nil {
			return nil, fmt.Errorf("verify order: %w", err)
		}
		if owner != input.CustomerID {
			return nil, ErrOrderCustomerMismatch
		}
	}
	if input.CollectionDate.IsZero() {
		input.CollectionDate = shared.NewDate(s.now())
	}

	key := ""
	if input.IdempotencyKey != "" && s.idempotency != nil {
		key = fmt.Sprintf("%d:%s", userID, input.IdempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return nil, err
		}
	}

	collection := Collection{
		UserID:         userID,
		CustomerID:     input.CustomerID,
		OrderID:        input.OrderID,
		Amount:         input.Amount,
		CollectionDate: input.CollectionDate,
		Remarks:        strings.TrimSpace(input.Remarks),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("insert collection: %w", err)
		}
		collection.ID = id
		txnID, err := tx.InsertTransaction(ctx, Transaction{
			UserID:       userID,
			CustomerID:   collection.CustomerID,
			Type:         TxnPaid,
			Amount:       collection.Amount,
			Date:         collection.CollectionDate,
			Note:         collection.Remarks,
			CollectionID: &id,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := tx.LinkTransaction(ctx, id, txnID); err != nil {
			return fmt.Errorf("link transaction: %w", err)
		}
		collection.TransactionID = &txnID
		return nil
	})
	if err != nil {
		if key != "" {
			if delErr := s.idempotency.Delete(ctx, key, idempotencyModule); delErr != nil {
				err = errors.Join(err, delErr)
			}
		}
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  userID,
			Action:   "collection.recorded",
			Entity:   "collection",
			EntityID: strconv.FormatInt(collection.ID, 10),
			Meta:     map[string]any{"amount": collection.Amount.StringFixed(2), "customer_id": collection.CustomerID},
		}); err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return &collection, nil
}

// UpdateCollection changes the collection. The paired transaction keeps its
// original amount and date.
func (s *Service) UpdateCollection(ctx context.Context, userID, id int64, input UpdateCollectionInput) (*Collection, error) {
	existing, err := s.repo.GetCollection(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]any)
	if input.Amount != nil {
		amount := input.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, httpx.FieldErrors{"amount": "must be greater than 0"}
		}
		updates["amount"] = amount
	}
	if input.CollectionDate != nil {
		if input.CollectionDate.IsZero() {
			return nil, httpx.FieldErrors{"collection_date": "is required"}
		}
		updates["collection_date"] = *input.CollectionDate
	}
	if input.Remarks != nil {
		updates["remarks"] = strings.TrimSpace(*input.Remarks)
	}
	if len(updates) == 0 {
		return existing, nil
	}
	if err := s.repo.UpdateCollection(ctx, userID, id, updates); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetCollection(ctx, userID, id)
}

// DeleteCollection removes only the collection.
func (s *Service) DeleteCollection(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteCollection(ctx, userID, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return s.cache.Bump(ctx, userID)
}

func (s *Service) GetCollection(ctx context.Context, userID, id int64) (*Collection, error) {
	return s.repo.GetCollection(ctx, userID, id)
}

func (s *Service) ListCollections(ctx context.Context, userID int64, req ListCollectionsRequest) ([]Collection, int, error) {
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.ListCollections(ctx, userID, req)
}

// CreateTransaction records a manual udhaar or paid entry.
func (s *Service) CreateTransaction(ctx context.Context, userID int64, input CreateTransactionInput) (*Transaction, error) {
	fields := httpx.FieldErrors{}
	if !input.Type.Valid() {
		fields["type"] = "must be one of udhaar paid"
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		fields["amount"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return nil, fields
	}
	if _, err := s.customers.Get(ctx, userID, input.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	t := Transaction{
		UserID:     userID,
		CustomerID: input.CustomerID,
		Type:       input.Type,
		Amount:     amount,
		Date:       input.Date,
		Note:       strings.TrimSpace(input.Note),
	}
	if t.Date.IsZero() {
		t.Date = shared.NewDate(s.now())
	}
	id, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return s.cache.Bump(ctx, userID)
}

func (s *Service) ListTransactions(ctx context.Context, userID int64, customerID *int64) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, customerID)
}

// Statement lists a customer's entries in date order with a running balance.
// Udhaar adds to the balance and paid subtracts from it.
func (s *Service) Statement(ctx context.Context, userID, customerID int64) (*Statement, error) {
	name := balance.UnknownCustomerLabel
	c, err := s.customers.Get(ctx, userID, customerID)
	switch {
	case err == nil:
		name = c.Name
	case !errors.Is(err, httpx.ErrNotFound):
		return nil, fmt.Errorf("get customer: %w", err)
	}

	txns, err := s.repo.ListTransactions(ctx, userID, &customerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return BuildStatement(customerID, name, txns), nil
}

// BuildStatement folds entries, already in date order, into a statement.
func BuildStatement(customerID int64, name string, txns []Transaction) *Statement {
	st := &Statement{
		CustomerID:   customerID,
		CustomerName: name,
		Lines:        make([]StatementLine, 0, len(txns)),
		TotalUdhaar:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		Balance:      decimal.Zero,
	}
	for _, t := range txns {
		switch t.Type {
		case TxnUdhaar:
			st.TotalUdhaar = st.TotalUdhaar.Add(t.Amount)
			st.Balance = st.Balance.Add(t.Amount)
		case TxnPaid:
			st.TotalPaid = st.TotalPaid.Add(t.Amount)
			st.Balance = st.Balance.Sub(t.Amount)
		}
		st.Lines = append(st.Lines, StatementLine{Transaction: t, Balance: st.Balance})
	}
	return st
}

// Payments returns every collection of the user for aggregation.
func (s *Service) Payments(ctx context.Context, userID int64) ([]balance.Payment, error) {
	list, err := s.repo.AllCollections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return toPayments(list), nil
}

// OrderPayments returns the collections linked to one order.
func (s *Service) OrderPayments(ctx context.Context, userID, orderID int64) ([]balance.Payment, error) {
	list, err := s.repo.OrderCollections(ctx, userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order collections: %w", err)
	}
	return toPayments(list), nil
}

func toPayments(list []Collection) []balance.Payment {
	out := make([]balance.Payment, 0, len(list))
	for _, c := range list {
		out = append(out, balance.Payment{
			ID:         c.ID,
			CustomerID: c.CustomerID,
			OrderID:    c.OrderID,
			Amount:     c.Amount,
			DueDate:    c.CollectionDate.Time,
		})
	}
	return out
}
