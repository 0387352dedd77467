package shared

import "context"

// Invalidator drops cached views derived from a user's data.
type Invalidator interface {
	Bump(ctx context.Context, userID int64) error
}

// NopInvalidator ignores invalidation requests.
type NopInvalidator struct{}

// Bump implements Invalidator.
func (NopInvalidator) Bump(context.Context, int64) error { return nil }
