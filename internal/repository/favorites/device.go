package favorites

import (
	"context"
	"errors"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"

	"github.com/google/uuid"
)

type deviceStore struct {
	store cache.Store
	ttl   time.Duration
}

// NewDevice returns the anonymous-favorites store. Favorites ride the
// stable device id with a long TTL: unlike the cart there is no aggressive
// expiry, a wishlist losing entries after half an hour would be hostile.
func NewDevice(store cache.Store, ttl time.Duration) Store {
	return &deviceStore{store: store, ttl: ttl}
}

func (s *deviceStore) List(ctx context.Context, ownerID string) ([]domain.FavoriteItem, error) {
	return s.load(ctx, ownerID)
}

func (s *deviceStore) Add(ctx context.Context, ownerID, productID string) (bool, error) {
	items, err := s.load(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return false, nil
		}
	}
	items = append(items, domain.FavoriteItem{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.save(ctx, ownerID, items); err != nil {
		return false, err
	}
	return true, nil
}

func (s *deviceStore) Remove(ctx context.Context, ownerID, productID string) error {
	items, err := s.load(ctx, ownerID)
	if err != nil {
		return err
	}
	kept := items[:0]
	found := false
	for _, it := range items {
		if it.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return domain.ErrNotFound
	}
	if len(kept) == 0 {
		return s.store.Delete(ctx, cache.AnonFavoriteKey(ownerID))
	}
	return s.save(ctx, ownerID, kept)
}

func (s *deviceStore) Clear(ctx context.Context, ownerID string) error {
	return s.store.Delete(ctx, cache.AnonFavoriteKey(ownerID))
}

func (s *deviceStore) load(ctx context.Context, ownerID string) ([]domain.FavoriteItem, error) {
	var items []domain.FavoriteItem
	err := s.store.GetJSON(ctx, cache.AnonFavoriteKey(ownerID), &items)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func (s *deviceStore) save(ctx context.Context, ownerID string, items []domain.FavoriteItem) error {
	return s.store.SetJSON(ctx, cache.AnonFavoriteKey(ownerID), items, s.ttl)
}
