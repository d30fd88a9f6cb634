package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// ProductService manages the catalogue. Reads are public; writes need ManageProducts.
type ProductService struct {
	repo ports.ProductRepository
	log  zerolog.Logger
	now  func() time.Time
}

var _ ports.ProductService = (*ProductService)(nil)

func NewProductService(repo ports.ProductRepository, log zerolog.Logger) *ProductService {
	return &ProductService{repo: repo, log: log, now: time.Now}
}

func (s *ProductService) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.Upstream("list products", err)
	}
	if products == nil {
		products = []*domain.Product{}
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Upstream("find product", err)
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, caller domain.Caller, in ports.ProductInput) (*domain.Product, error) {
	if err := domain.Authorize(caller, domain.ActionManageProducts); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be greater than zero", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	p := &domain.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Image:       strings.TrimSpace(in.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, domain.Upstream("create product", err)
	}

	s.log.Info().Str("product_id", p.ID).Str("actor_id", caller.UserID).Msg("product created")
	return p, nil
}

// Update applies the non-zero fields of in to the stored product.
func (s *ProductService) Update(ctx context.Context, caller domain.Caller, id string, in ports.ProductInput) (*domain.Product, error) {
	if err := domain.Authorize(caller, domain.ActionManageProducts); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Upstream("find product", err)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		p.Description = d
	}
	if img := strings.TrimSpace(in.Image); img != "" {
		p.Image = img
	}
	if !in.Price.IsZero() {
		if !in.Price.IsPositive() {
			return nil, fmt.Errorf("%w: price must be greater than zero", domain.ErrInvalidInput)
		}
		p.Price = in.Price
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, domain.Upstream("update product", err)
	}

	s.log.Info().Str("product_id", p.ID).Str("actor_id", caller.UserID).Msg("product updated")
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if err := domain.Authorize(caller, domain.ActionManageProducts); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return domain.Upstream("delete product", err)
	}
	s.log.Info().Str("product_id", id).Str("actor_id", caller.UserID).Msg("product deleted")
	return nil
}
