package shared

import (
	"fmt"

	"github.com/khata-app/khata/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("master data %w", httpx.ErrNotFound)
	ErrInvalidID     = fmt.Errorf("invalid ID: %w", httpx.ErrValidation)
	ErrRequiredField = fmt.Errorf("field is required: %w", httpx.ErrValidation)
)
