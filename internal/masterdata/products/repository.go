package products

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/khata-app/khata/internal/masterdata/shared"
	"github.com/khata-app/khata/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Product, int, error)
	All(ctx context.Context, userID int64) ([]Product, error)
	Get(ctx context.Context, userID, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, userID, id int64, product Product) error
	Delete(ctx context.Context, userID, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const productColumns = `id, user_id, name, unit, price, created_at, updated_at`

var sortable = []string{"name", "price", "unit", "created_at"}

func (r *repository) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{userID}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY ` + shared.OrderBy(filters.SortBy, filters.SortDir, sortable, "name")
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	products, err := r.query(ctx, query, args...)
	return products, total, err
}

func (r *repository) All(ctx context.Context, userID int64) ([]Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var price pgtype.Numeric
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Unit, &price, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Price = db.Decimal(price)
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Product, error) {
	var p Product
	var price pgtype.Numeric
	err := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE user_id = $1 AND id = $2`, userID, id).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Unit, &price, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.Price = db.Decimal(price)
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	query := `INSERT INTO products (user_id, name, unit, price, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, product.UserID, product.Name, product.Unit, db.Numeric(product.Price), now).Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, userID, id int64, product Product) error {
	query := `UPDATE products SET name = $1, unit = $2, price = $3, updated_at = $4 WHERE user_id = $5 AND id = $6`
	tag, err := r.db.Exec(ctx, query, product.Name, product.Unit, db.Numeric(product.Price), time.Now().UTC(), userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
