package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

var ErrNotFound = fmt.Errorf("order %w", httpx.ErrNotFound)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, userID, id int64) (*Order, error)
	List(ctx context.Context, userID int64, req ListOrdersRequest) ([]Order, int, error)
	ListAll(ctx context.Context, userID int64) ([]Order, error)
	Create(ctx context.Context, order Order) (int64, error)
	Update(ctx context.Context, userID, id int64, updates map[string]any) error
	InsertItems(ctx context.Context, orderID int64, items []OrderItem) error
	DeleteItems(ctx context.Context, orderID int64) error
	UpdateStatus(ctx context.Context, userID, id int64, from, to OrderStatus) (bool, error)
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// NewTxRepository binds a repository to an open transaction. WithTx on it
// reuses that transaction.
func NewTxRepository(tx pgx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx})
	})
}

const orderColumns = `id, user_id, customer_id, status, job_date, assignee, site_address, remarks, advance_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	var jobDate pgtype.Date
	var advance pgtype.Numeric
	err := row.Scan(&o.ID, &o.UserID, &o.CustomerID, &o.Status, &jobDate, &o.Assignee, &o.SiteAddress, &o.Remarks, &advance, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.JobDate = shared.DateFromPG(jobDate)
	o.AdvanceAmount = db.Decimal(advance)
	return o, nil
}

func (r *repository) Get(ctx context.Context, userID, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := r.items(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListOrdersRequest) ([]Order, int, error) {
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
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	orders, err := r.query(ctx, query, args...)
	return orders, total, err
}

func (r *repository) ListAll(ctx context.Context, userID int64) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *repository) items(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, line_order
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_order, id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]OrderItem, len(orderIDs))
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.LineOrder); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, order Order) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (user_id, customer_id, status, job_date, assignee, site_address, remarks, advance_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`,
		order.UserID, order.CustomerID, string(order.Status), order.JobDate.PG(), order.Assignee, order.SiteAddress,
		order.Remarks, db.Numeric(order.AdvanceAmount), now,
	).Scan(&id)
	return id, err
}

var updatableColumns = []string{"customer_id", "job_date", "assignee", "site_address", "remarks", "advance_amount"}

func (r *repository) Update(ctx context.Context, userID, id int64, updates map[string]any) error {
	query := "UPDATE orders SET updated_at = NOW()"
	var args []any
	argPos := 1

	for _, col := range updatableColumns {
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
		query += fmt.Sprintf(", %s = $%d", col, argPos)
		args = append(args, v)
		argPos++
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

func (r *repository) InsertItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for i, it := range items {
		lineOrder := it.LineOrder
		if lineOrder == 0 {
			lineOrder = i + 1
		}
		if _, err := r.db.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, line_order) VALUES ($1, $2, $3, $4)`,
			orderID, it.ProductID, it.Quantity, lineOrder,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, orderID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

// UpdateStatus moves the order from one status to another. It reports false
// when the order was not in the from status.
func (r *repository) UpdateStatus(ctx context.Context, userID, id int64, from, to OrderStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE user_id = $2 AND id = $3 AND status = $4`,
		string(to), userID, id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the order and its items. Collections linked to it stay.
func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
