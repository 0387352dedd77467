package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/shared"
)

type Service struct {
	repo  Repository
	cache shared.Invalidator
}

func NewService(repo Repository, cache shared.Invalidator) *Service {
	if cache == nil {
		cache = shared.NopInvalidator{}
	}
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		UserID: userID,
		Name:   strings.TrimSpace(req.Name),
		Phone:  trimmed(req.Phone),
	}
	if customer.Name == "" {
		return nil, httpx.FieldErrors{"name": "is required"}
	}

	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	customer.ID = id
	return &customer, nil
}

func (s *Service) Update(ctx context.Context, userID, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, httpx.FieldErrors{"name": "is required"}
		}
		updates["name"] = name
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, userID, id, updates); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*Customer, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID int64, req ListCustomersRequest) ([]Customer, int, error) {
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.List(ctx, userID, req)
}

// Delete removes the customer without touching its orders or collections.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return s.cache.Bump(ctx, userID)
}

// Names maps customer ids to display names.
func (s *Service) Names(ctx context.Context, userID int64) (map[int64]string, error) {
	return s.repo.Names(ctx, userID)
}

// DisplayName resolves id against names, falling back to the unknown label
// for deleted customers.
func DisplayName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return balance.UnknownCustomerLabel
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
