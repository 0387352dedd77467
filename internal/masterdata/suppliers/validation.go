package suppliers

import (
	"strings"

	"github.com/khata-app/khata/internal/platform/httpx"
)

func (s *Service) validate(sup *Supplier) error {
	sup.Name = strings.TrimSpace(sup.Name)
	sup.Phone = strings.TrimSpace(sup.Phone)
	if sup.Name == "" {
		return httpx.FieldErrors{"name": "is required"}
	}
	return nil
}
