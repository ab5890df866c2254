package shipment

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, s domain.Shipment) (*domain.Shipment, error)
	GetByOrder(ctx context.Context, orderID string) (*domain.Shipment, error)
}
