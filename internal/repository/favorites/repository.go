package favorites

import (
	"context"

	"storefront/internal/domain"
)

// Store is the favorites persistence capability, mirroring the cart's
// dual-backend shape minus quantities. Add reports whether a row was
// actually created: a duplicate add is a no-op signalled to the caller,
// never an error.
type Store interface {
	List(ctx context.Context, ownerID string) ([]domain.FavoriteItem, error)
	Add(ctx context.Context, ownerID, productID string) (created bool, err error)
	Remove(ctx context.Context, ownerID, productID string) error
	Clear(ctx context.Context, ownerID string) error
}
