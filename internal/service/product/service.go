// Package product serves the catalog. Reads are the hot path; identical
// concurrent list and detail queries collapse into one database round trip
// through the coalesce group.
package product

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/coalesce"
	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

const defaultPageSize = 24

type Service struct {
	repo   productrepo.Repository
	group  *coalesce.Group
	logger *log.Logger
}

func New(repo productrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, group: coalesce.New(), logger: logger}
}

func (s *Service) List(ctx context.Context, filter productrepo.ListFilter) ([]domain.Product, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = defaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)

	key := fmt.Sprintf("list|%s|%s|%d|%d", filter.Search, filter.Category, filter.Limit, filter.Offset)
	v, err := s.group.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	v, err := s.group.Do(ctx, "id|"+id, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	v, err := s.group.Do(ctx, "slug|"+slug, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

// Create is admin-only; the handler enforces that.
func (s *Service) Create(ctx context.Context, in productrepo.CreateInput) (*domain.Product, error) {
	if verr := validateCreate(in); verr != nil {
		return nil, verr
	}
	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("product: created id=%s slug=%s", created.ID, created.Slug)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in productrepo.UpdateInput) (*domain.Product, error) {
	if in.PriceCents != nil && *in.PriceCents < 0 {
		return nil, &domain.ValidationError{Fields: map[string]string{"priceCents": "must not be negative"}}
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, &domain.ValidationError{Fields: map[string]string{"stock": "must not be negative"}}
	}
	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	// Detail reads keyed on this product must re-run after a write.
	s.group.Forget("id|" + id)
	s.group.Forget("slug|" + updated.Slug)
	return updated, nil
}

func validateCreate(in productrepo.CreateInput) *domain.ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(in.Slug) == "" {
		fields["slug"] = "required"
	}
	if len(in.Names) == 0 || strings.TrimSpace(in.Names["en"]) == "" {
		fields["names"] = "at least an English name is required"
	}
	if in.PriceCents <= 0 {
		fields["priceCents"] = "must be positive"
	}
	if in.Stock < 0 {
		fields["stock"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
