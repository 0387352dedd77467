package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WindowParams selects a slice of the timeline. Limit <= 0 means no limit.
type WindowParams struct {
	From   time.Time
	To     time.Time
	Entity string
	Action string
	Offset int
	Limit  int
}

// Repository reads audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, userID int64, params WindowParams) ([]TimelineRow, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) TimelineWindow(ctx context.Context, userID int64, params WindowParams) ([]TimelineRow, error) {
	query := `SELECT occurred_at, action, entity, entity_id, meta FROM audit_logs
WHERE actor_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR action = $5)
ORDER BY occurred_at DESC, id DESC`
	args := []any{userID, toPgTime(params.From), toPgTime(params.To), optionalText(params.Entity), optionalText(params.Action)}
	if params.Limit > 0 {
		query += ` OFFSET $6 LIMIT $7`
		args = append(args, params.Offset, params.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline: %w", err)
	}
	defer rows.Close()

	result := make([]TimelineRow, 0)
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.At, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
