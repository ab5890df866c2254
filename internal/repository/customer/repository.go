package customer

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	List(ctx context.Context, limit, offset int) ([]domain.Customer, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName, locale string) (*domain.Customer, error)
	SetAddresses(ctx context.Context, id string, addrs []domain.Address) error
}
