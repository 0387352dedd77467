package suppliers

import (
	"context"

	"github.com/khata-app/khata/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, userID, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID int64, sup Supplier) (Supplier, error) {
	if err := s.validate(&sup); err != nil {
		return Supplier{}, err
	}
	sup.UserID = userID
	return s.repo.Create(ctx, sup)
}

func (s *Service) Update(ctx context.Context, userID, id int64, sup Supplier) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	if err := s.validate(&sup); err != nil {
		return Supplier{}, err
	}
	if err := s.repo.Update(ctx, userID, id, sup); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, userID, id)
}
