package products

import (
	"context"
	"fmt"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/masterdata/shared"
	internalShared "github.com/khata-app/khata/internal/shared"
)

type Service struct {
	repo  Repository
	cache internalShared.Invalidator
}

func NewService(repo Repository, cache internalShared.Invalidator) *Service {
	if cache == nil {
		cache = internalShared.NopInvalidator{}
	}
	return &Service{repo: repo, cache: cache}
}

func (s *Service) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, userID, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID int64, product Product) (Product, error) {
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	product.UserID = userID
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, s.cache.Bump(ctx, userID)
}

// Update changes a product. A new price revalues every order that uses it.
func (s *Service) Update(ctx context.Context, userID, id int64, product Product) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, userID, id, product); err != nil {
		return Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, userID, id)
}

// Delete removes a product. Orders that reference it keep the id and value
// it at zero.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return s.cache.Bump(ctx, userID)
}

// Catalog returns every product of the user keyed by id.
func (s *Service) Catalog(ctx context.Context, userID int64) (map[int64]Product, error) {
	all, err := s.repo.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	out := make(map[int64]Product, len(all))
	for _, p := range all {
		out[p.ID] = p
	}
	return out, nil
}

// PriceBook returns the current price of every product of the user.
func (s *Service) PriceBook(ctx context.Context, userID int64) (balance.PriceBook, error) {
	all, err := s.repo.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return BuildPriceBook(all), nil
}

// BuildPriceBook converts products to a price book.
func BuildPriceBook(all []Product) balance.PriceBook {
	entries := make([]balance.PriceEntry, 0, len(all))
	for _, p := range all {
		entries = append(entries, balance.PriceEntry{ProductID: p.ID, Price: p.Price})
	}
	return balance.NewPriceBook(entries...)
}
