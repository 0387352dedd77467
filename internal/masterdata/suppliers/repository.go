package suppliers

import (
	"context"
	"strconv"
	"time"

	"github.com/khata-app/khata/internal/masterdata/shared"
	"github.com/khata-app/khata/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, userID, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, userID, id int64, supplier Supplier) error
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Supplier, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{userID}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR phone ILIKE $` + n + `)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, name, COALESCE(phone, ''), created_at, updated_at FROM suppliers` + where +
		` ORDER BY ` + shared.OrderBy(filters.SortBy, filters.SortDir, []string{"name", "created_at"}, "name")
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Phone, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, `SELECT id, user_id, name, COALESCE(phone, ''), created_at, updated_at FROM suppliers WHERE user_id = $1 AND id = $2`, userID, id).
		Scan(&s.ID, &s.UserID, &s.Name, &s.Phone, &s.CreatedAt, &s.UpdatedAt)
	if db.IsNoRows(err) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO suppliers (user_id, name, phone, created_at, updated_at) VALUES ($1, $2, NULLIF($3, ''), $4, $4) RETURNING id`,
		supplier.UserID, supplier.Name, supplier.Phone, now).Scan(&supplier.ID)
	if err != nil {
		return Supplier{}, err
	}
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, userID, id int64, supplier Supplier) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET name = $1, phone = NULLIF($2, ''), updated_at = $3 WHERE user_id = $4 AND id = $5`,
		supplier.Name, supplier.Phone, time.Now().UTC(), userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
