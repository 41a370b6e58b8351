package products

import (
	"context"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// Service validates catalog writes and serves reads through whatever
// repository it is given, normally the cached one.
type Service struct {
	repo Repository
}

// NewService wires a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// GetByID returns one product.
func (s *Service) GetByID(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds a product. Names are unique; the pre-check gives a clean
// conflict answer and the database constraint closes the race window.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Product, error) {
	if err := req.validate(); err != nil {
		return Product{}, err
	}

	if _, err := s.repo.GetByName(ctx, req.Name); err == nil {
		return Product{}, apperrors.New(apperrors.ErrCodeProductNameInUse, "Product name already in use")
	} else if !apperrors.IsCode(err, apperrors.ErrCodeProductNotFound) {
		return Product{}, err
	}

	return s.repo.Create(ctx, Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	})
}

// Update merges the provided fields onto the stored product.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Product, error) {
	if err := req.validate(); err != nil {
		return Product{}, err
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	return s.repo.Update(ctx, product)
}

// Delete removes a product and returns the deleted row.
func (s *Service) Delete(ctx context.Context, id int64) (Product, error) {
	return s.repo.Delete(ctx, id)
}
