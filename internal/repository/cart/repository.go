package cart

import (
	"context"

	"storefront/internal/domain"
)

// Store is the cart persistence capability. Two implementations exist: a
// Postgres store for authenticated customers and a device-cache store for
// anonymous visitors. The cart service is written once against this
// interface and picks an implementation per request identity, instead of
// branching on auth state inside every operation.
type Store interface {
	List(ctx context.Context, ownerID string) ([]domain.CartItem, error)
	// Upsert adds quantity to the existing (owner, product) item or inserts
	// a new one; at most one item per product ever exists.
	Upsert(ctx context.Context, ownerID, productID string, quantity int, snap *domain.ProductSnapshot) (*domain.CartItem, error)
	// SetQuantity updates an item in place; a non-positive quantity removes it.
	SetQuantity(ctx context.Context, ownerID, itemID string, quantity int) error
	Remove(ctx context.Context, ownerID, itemID string) error
	Clear(ctx context.Context, ownerID string) error
}
