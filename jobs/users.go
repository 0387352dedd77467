package jobs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserLister enumerates the accounts a scheduled job should visit.
type UserLister interface {
	ActiveUsers(ctx context.Context) ([]int64, error)
}

// PoolUsers lists active users that own at least one order or collection.
type PoolUsers struct {
	Pool *pgxpool.Pool
}

func (p PoolUsers) ActiveUsers(ctx context.Context) ([]int64, error) {
	if p.Pool == nil {
		return nil, errors.New("jobs: pool not configured")
	}
	const query = `SELECT u.id FROM users u
WHERE u.is_active
  AND (EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)
    OR EXISTS (SELECT 1 FROM collections c WHERE c.user_id = u.id))
ORDER BY u.id`
	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
