package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/internal/platform/httpx"
)

// ErrEmailTaken is returned when registering an address twice.
var ErrEmailTaken = fmt.Errorf("email already registered: %w", httpx.ErrDuplicate)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT id, email, password_hash, is_active, created_at FROM users WHERE lower(email) = lower($1)`
	var user User
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts an active account.
func (r *PGRepository) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`, email, passwordHash).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
