package quotations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/sales/orders"
)

var ErrNotFound = fmt.Errorf("quotation %w", httpx.ErrNotFound)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// Orders exposes the order store bound to the same connection or
	// transaction.
	Orders() orders.Repository
	Get(ctx context.Context, userID, id int64) (*Quotation, error)
	List(ctx context.Context, userID int64, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	Update(ctx context.Context, userID, id int64, updates map[string]any) error
	UpdateStatus(ctx context.Context, userID, id int64, from, to QuotationStatus) (bool, error)
	MarkConverted(ctx context.Context, userID, id, orderID int64) (bool, error)
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, tx: tx})
	})
}

func (r *repository) Orders() orders.Repository {
	if r.tx != nil {
		return orders.NewTxRepository(r.tx)
	}
	return orders.NewRepository(r.pool)
}

const quotationColumns = `id, user_id, customer_id, product_id, quantity, status, converted_to_order, order_id, remarks, created_at, updated_at`

func scanQuotation(row interface{ Scan(...any) error }) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.UserID, &q.CustomerID, &q.ProductID, &q.Quantity, &q.Status,
		&q.ConvertedToOrder, &q.OrderID, &q.Remarks, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *repository) Get(ctx context.Context, userID, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListQuotationsRequest) ([]Quotation, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argPos := 2

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotations "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM quotations %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		quotationColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (user_id, customer_id, product_id, quantity, status, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`,
		q.UserID, q.CustomerID, q.ProductID, q.Quantity, string(q.Status), q.Remarks, now,
	).Scan(&id)
	return id, err
}

var updatableColumns = []string{"customer_id", "product_id", "quantity", "remarks"}

func (r *repository) Update(ctx context.Context, userID, id int64, updates map[string]any) error {
	query := "UPDATE quotations SET updated_at = NOW()"
	var args []any
	argPos := 1

	for _, col := range updatableColumns {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE user_id = $%d AND id = $%d", argPos, argPos+1)
	args = append(args, userID, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID, id int64, from, to QuotationStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET status = $1, updated_at = NOW() WHERE user_id = $2 AND id = $3 AND status = $4`,
		string(to), userID, id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkConverted links an approved, unconverted quotation to its order.
func (r *repository) MarkConverted(ctx context.Context, userID, id, orderID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET converted_to_order = TRUE, order_id = $1, updated_at = NOW()
		WHERE user_id = $2 AND id = $3 AND status = $4 AND NOT converted_to_order`,
		orderID, userID, id, string(QuotationStatusApproved))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
