package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/internal/platform/httpx"
)

var ErrNotFound = fmt.Errorf("customer %w", httpx.ErrNotFound)

type Repository interface {
	Get(ctx context.Context, userID, id int64) (*Customer, error)
	List(ctx context.Context, userID int64, req ListCustomersRequest) ([]Customer, int, error)
	Names(ctx context.Context, userID int64) (map[int64]string, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, userID, id int64, updates map[string]any) error
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const customerColumns = `id, user_id, name, phone, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (Customer, error) {
	var c Customer
	var phone pgtype.Text
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, userID, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListCustomersRequest) ([]Customer, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argPos := 2

	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM customers %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		%s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Names(ctx context.Context, userID int64) (map[int64]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM customers WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (r *repository) Create(ctx context.Context, customer Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (user_id, name, phone) VALUES ($1, $2, $3) RETURNING id`,
		customer.UserID, customer.Name, pgtype.Text{String: getString(customer.Phone), Valid: customer.Phone != nil},
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, userID, id int64, updates map[string]any) error {
	query := "UPDATE customers SET updated_at = NOW()"
	var args []any
	argPos := 1

	if v, ok := updates["name"]; ok {
		query += fmt.Sprintf(", name = $%d", argPos)
		args = append(args, v)
		argPos++
	}
	if v, ok := updates["phone"]; ok {
		query += fmt.Sprintf(", phone = NULLIF($%d, '')", argPos)
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

// Delete removes only the customer row. Orders, quotations and collections
// keep pointing at the id.
func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
