package shared

import (
	"errors"
	"fmt"

	"github.com/khata-app/khata/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrSessionNotFound indicates a missing, expired or forged bearer token.
	ErrSessionNotFound = fmt.Errorf("session not found: %w", httpx.ErrUnauthorized)
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = fmt.Errorf("idempotent request already processed: %w", httpx.ErrConflict)
	errNotInitialised      = errors.New("shared: component not initialised")
)
