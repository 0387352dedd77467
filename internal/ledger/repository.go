package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

var (
	ErrCollectionNotFound  = fmt.Errorf("collection %w", httpx.ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", httpx.ErrNotFound)
)

// Repository provides PostgreSQL backed persistence for collections and
// transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertCollection(ctx context.Context, c Collection) (int64, error)
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	LinkTransaction(ctx context.Context, collectionID, transactionID int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn in a single read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (tx *txRepo) InsertCollection(ctx context.Context, c Collection) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO collections (user_id, customer_id, order_id, amount, collection_date, remarks)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, c.UserID, c.CustomerID, c.OrderID, db.Numeric(c.Amount), c.CollectionDate.PG(), c.Remarks).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	return insertTransaction(ctx, tx.tx, t)
}

func (tx *txRepo) LinkTransaction(ctx context.Context, collectionID, transactionID int64) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE collections SET transaction_id = $1 WHERE id = $2`, transactionID, collectionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

func insertTransaction(ctx context.Context, conn db.DBTX, t Transaction) (int64, error) {
	var id int64
	err := conn.QueryRow(ctx, `INSERT INTO transactions (user_id, customer_id, type, amount, txn_date, note, collection_id)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`, t.UserID, t.CustomerID, string(t.Type), db.Numeric(t.Amount), t.Date.PG(), t.Note, t.CollectionID).Scan(&id)
	return id, err
}

// CreateTransaction records a manual entry outside any transaction.
func (r *Repository) CreateTransaction(ctx context.Context, t Transaction) (int64, error) {
	return insertTransaction(ctx, r.pool, t)
}

const collectionColumns = `id, user_id, customer_id, order_id, amount, collection_date, remarks, transaction_id, created_at`

func scanCollection(row pgx.Row) (Collection, error) {
	var c Collection
	var amount pgtype.Numeric
	var date pgtype.Date
	if err := row.Scan(&c.ID, &c.UserID, &c.CustomerID, &c.OrderID, &amount, &date, &c.Remarks, &c.TransactionID, &c.CreatedAt); err != nil {
		return Collection{}, err
	}
	c.Amount = db.Decimal(amount)
	c.CollectionDate = shared.DateFromPG(date)
	return c, nil
}

// GetCollection retrieves a collection by id.
func (r *Repository) GetCollection(ctx context.Context, userID, id int64) (*Collection, error) {
	c, err := scanCollection(r.pool.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCollections returns collections newest first with the filtered count.
func (r *Repository) ListCollections(ctx context.Context, userID int64, req ListCollectionsRequest) ([]Collection, int, error) {
	query := ` FROM collections WHERE user_id = $1`
	args := []any{userID}
	argNum := 2

	if req.CustomerID != nil {
		query += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, *req.CustomerID)
		argNum++
	}
	if req.OrderID != nil {
		query += fmt.Sprintf(" AND order_id = $%d", argNum)
		args = append(args, *req.OrderID)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query = `SELECT ` + collectionColumns + query + " ORDER BY collection_date DESC, id DESC"
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	list, err := r.queryCollections(ctx, query, args...)
	return list, total, err
}

// AllCollections returns every collection of the user.
func (r *Repository) AllCollections(ctx context.Context, userID int64) ([]Collection, error) {
	return r.queryCollections(ctx, `SELECT `+collectionColumns+` FROM collections WHERE user_id = $1 ORDER BY id`, userID)
}

// OrderCollections returns collections linked to one order.
func (r *Repository) OrderCollections(ctx context.Context, userID, orderID int64) ([]Collection, error) {
	return r.queryCollections(ctx, `SELECT `+collectionColumns+` FROM collections WHERE user_id = $1 AND order_id = $2 ORDER BY id`, userID, orderID)
}

func (r *Repository) queryCollections(ctx context.Context, query string, args ...any) ([]Collection, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCollection applies amount, collection_date and remarks updates.
func (r *Repository) UpdateCollection(ctx context.Context, userID, id int64, updates map[string]any) error {
	var sets []string
	var args []any
	argNum := 1
	for _, col := range []string{"amount", "collection_date", "remarks"} {
		v, ok := updates[col]
		if !ok {
			continue
		}
		switch typed := v.(type) {
		case decimal.Decimal:
			v = db.Numeric(typed)
		case shared.Date:
			v = typed.PG()
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, v)
		argNum++
	}
	if len(sets) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE collections SET %s WHERE user_id = $%d AND id = $%d", strings.Join(sets, ", "), argNum, argNum+1)
	args = append(args, userID, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// DeleteCollection removes the collection only. Its paired transaction stays.
func (r *Repository) DeleteCollection(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM collections WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// ListTransactions returns entries in date order, optionally for one
// customer.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, customerID *int64) ([]Transaction, error) {
	query := `SELECT id, user_id, customer_id, type, amount, txn_date, note, collection_id, created_at
FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if customerID != nil {
		query += " AND customer_id = $2"
		args = append(args, *customerID)
	}
	query += " ORDER BY txn_date, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		var amount pgtype.Numeric
		var date pgtype.Date
		if err := rows.Scan(&t.ID, &t.UserID, &t.CustomerID, &t.Type, &amount, &date, &t.Note, &t.CollectionID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Amount = db.Decimal(amount)
		t.Date = shared.DateFromPG(date)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTransaction removes one entry.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
