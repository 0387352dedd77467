package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

var ErrBillNotFound = fmt.Errorf("bill %w", httpx.ErrNotFound)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, userID, id int64) (*Bill, error)
	List(ctx context.Context, userID int64, req ListBillsRequest) ([]Bill, int, error)
	Delete(ctx context.Context, userID, id int64) error
}

type TxRepository interface {
	InsertBill(ctx context.Context, bill Bill) (int64, error)
	InsertItem(ctx context.Context, item BillItem) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) InsertBill(ctx context.Context, bill Bill) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO bills (user_id, customer_name, customer_phone, bill_date, total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		bill.UserID, bill.CustomerName, bill.CustomerPhone, bill.BillDate.PG(), db.Numeric(bill.Total)).Scan(&id)
	return id, err
}

func (t *txRepo) InsertItem(ctx context.Context, item BillItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO bill_items (bill_id, name, quantity, price, line_order) VALUES ($1, $2, $3, $4, $5)`,
		item.BillID, item.Name, item.Quantity, db.Numeric(item.Price), item.LineOrder)
	return err
}

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	var date pgtype.Date
	var total pgtype.Numeric
	if err := row.Scan(&b.ID, &b.UserID, &b.CustomerName, &b.CustomerPhone, &date, &total, &b.CreatedAt); err != nil {
		return Bill{}, err
	}
	b.BillDate = shared.DateFromPG(date)
	b.Total = db.Decimal(total)
	return b, nil
}

func (r *repository) Get(ctx context.Context, userID, id int64) (*Bill, error) {
	b, err := scanBill(r.pool.QueryRow(ctx, `SELECT id, user_id, customer_name, customer_phone, bill_date, total, created_at
FROM bills WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, name, quantity, price, line_order
FROM bill_items WHERE bill_id = $1 ORDER BY line_order, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it BillItem
		var price pgtype.Numeric
		if err := rows.Scan(&it.ID, &it.BillID, &it.Name, &it.Quantity, &price, &it.LineOrder); err != nil {
			return nil, err
		}
		it.Price = db.Decimal(price)
		b.Items = append(b.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListBillsRequest) ([]Bill, int, error) {
	where := `WHERE user_id = $1`
	args := []any{userID}
	if req.Search != "" {
		where += ` AND customer_name ILIKE $2`
		args = append(args, "%"+req.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bills `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, customer_name, customer_phone, bill_date, total, created_at
FROM bills %s ORDER BY bill_date DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, b)
	}
	return bills, total, rows.Err()
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bills WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}
