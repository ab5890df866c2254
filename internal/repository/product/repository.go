package product

import (
	"context"

	"storefront/internal/domain"
)

type ListFilter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

type CreateInput struct {
	Slug         string
	Names        map[string]string
	Descriptions map[string]string
	Category     string
	PriceCents   int64
	Currency     string
	Stock        int
	ImageURL     string
}

type UpdateInput struct {
	Names        map[string]string
	Descriptions map[string]string
	Category     *string
	PriceCents   *int64
	Stock        *int
	ImageURL     *string
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Create(ctx context.Context, in CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error)
	// DecrementStock atomically subtracts quantity, guarded against going
	// negative, so concurrent orders cannot oversell.
	DecrementStock(ctx context.Context, id string, quantity int) error
}
