package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

// Indexer mirrors catalog writes into the search index. Index failures are
// reported to the caller for logging but must not abort the write.
type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type CreateInput struct {
	Name            string
	Description     string
	Price           float64
	DiscountPercent float64
	Stock           uint
	Sizes           []string
	Colors          []string
	Images          []string
}

type PatchInput struct {
	Name            *string
	Description     *string
	Price           *float64
	DiscountPercent *float64
	Stock           *uint
	Sizes           []string
	Colors          []string
	Images          []string
}

type CatalogService struct {
	Repo    *GormRepo
	Indexer Indexer
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return p, err
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateInput) (*models.Product, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	prod := &models.Product{
		Name:            in.Name,
		Description:     in.Description,
		Price:           in.Price,
		DiscountPercent: in.DiscountPercent,
		Stock:           in.Stock,
		Sizes:           in.Sizes,
		Colors:          in.Colors,
		Images:          in.Images,
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, req PatchInput, id uint) (*models.Product, error) {
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.DiscountPercent != nil && (*req.DiscountPercent < 0 || *req.DiscountPercent > 100) {
		return nil, fmt.Errorf("%w: discount must be within 0-100", ErrValidation)
	}
	if req.Sizes != nil {
		if err := mustBeSubset(req.Sizes, models.Sizes, "sizes"); err != nil {
			return nil, err
		}
	}
	if req.Colors != nil {
		if err := mustBeSubset(req.Colors, models.Colors, "colors"); err != nil {
			return nil, err
		}
	}

	prod, err := s.Repo.PatchProduct(ctx, req, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	err := s.Repo.DeleteProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	if s.Indexer != nil {
		if err := s.Indexer.DeleteProduct(ctx, id); err != nil {
			logIndexError(ctx, err)
		}
	}
	return nil
}

func validateCreate(in CreateInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return fmt.Errorf("%w: discount must be within 0-100", ErrValidation)
	}
	if len(in.Sizes) == 0 {
		return fmt.Errorf("%w: at least one size required", ErrValidation)
	}
	if len(in.Colors) == 0 {
		return fmt.Errorf("%w: at least one color required", ErrValidation)
	}
	if len(in.Images) == 0 {
		return fmt.Errorf("%w: at least one image required", ErrValidation)
	}
	if err := mustBeSubset(in.Sizes, models.Sizes, "sizes"); err != nil {
		return err
	}
	return mustBeSubset(in.Colors, models.Colors, "colors")
}

func mustBeSubset(values, allowed []string, field string) error {
	for _, v := range values {
		found := false
		for _, a := range allowed {
			if v == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: unknown %s %q", ErrValidation, field, v)
		}
	}
	return nil
}

func (s *CatalogService) index(ctx context.Context, prod *models.Product) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexProduct(ctx, prod); err != nil {
		logIndexError(ctx, err)
	}
}
