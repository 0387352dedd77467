package products

import (
	"strings"

	"github.com/khata-app/khata/internal/platform/httpx"
)

const defaultUnit = "pcs"

func (s *Service) validate(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Unit = strings.TrimSpace(p.Unit)
	errs := httpx.FieldErrors{}
	if p.Name == "" {
		errs["name"] = "is required"
	}
	if p.Price.IsNegative() {
		errs["price"] = "must not be negative"
	}
	if len(errs) > 0 {
		return errs
	}
	if p.Unit == "" {
		p.Unit = defaultUnit
	}
	p.Price = p.Price.Round(2)
	return nil
}
