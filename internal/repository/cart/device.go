package cart

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

// NewDevice returns the anonymous-cart store: the whole cart is one JSON
// blob under the device id, and every write refreshes the TTL. Reading an
// expired blob just yields an empty cart; the device id is untouched.
func NewDevice(store cache.Store, ttl time.Duration) Store {
	return &deviceStore{store: store, ttl: ttl}
}

func (s *deviceStore) List(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	items, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *deviceStore) Upsert(ctx context.Context, ownerID, productID string, quantity int, snap *domain.ProductSnapshot) (*domain.CartItem, error) {
	items, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			if snap != nil {
				items[i].Snapshot = snap
			}
			items[i].UpdatedAt = now
			if err := s.save(ctx, ownerID, items); err != nil {
				return nil, err
			}
			return &items[i], nil
		}
	}
	item := domain.CartItem{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProductID: productID,
		Quantity:  quantity,
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	}
	items = append(items, item)
	if err := s.save(ctx, ownerID, items); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *deviceStore) SetQuantity(ctx context.Context, ownerID, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, ownerID, itemID)
	}
	items, err := s.load(ctx, ownerID)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			items[i].UpdatedAt = time.Now().UTC()
			return s.save(ctx, ownerID, items)
		}
	}
	return domain.ErrNotFound
}

func (s *deviceStore) Remove(ctx context.Context, ownerID, itemID string) error {
	items, err := s.load(ctx, ownerID)
	if err != nil {
		return err
	}
	kept := items[:0]
	found := false
	for _, it := range items {
		if it.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return domain.ErrNotFound
	}
	if len(kept) == 0 {
		return s.store.Delete(ctx, cache.AnonCartKey(ownerID))
	}
	return s.save(ctx, ownerID, kept)
}

func (s *deviceStore) Clear(ctx context.Context, ownerID string) error {
	return s.store.Delete(ctx, cache.AnonCartKey(ownerID))
}

func (s *deviceStore) load(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := s.store.GetJSON(ctx, cache.AnonCartKey(ownerID), &items)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func (s *deviceStore) save(ctx context.Context, ownerID string, items []domain.CartItem) error {
	return s.store.SetJSON(ctx, cache.AnonCartKey(ownerID), items, s.ttl)
}
