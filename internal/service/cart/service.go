// Package cart owns cart item lifecycle for both anonymous and
// authenticated visitors. The service is written once against the cart
// Store interface; the identity picks which backend a request hits.
package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront/internal/domain"
	"storefront/internal/events"
	cartrepo "storefront/internal/repository/cart"
)

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	customers cartrepo.Store
	devices   cartrepo.Store
	products  productRepo
	bus       *events.Bus
	logger    *log.Logger
}

func New(customers, devices cartrepo.Store, products productRepo, bus *events.Bus, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{customers: customers, devices: devices, products: products, bus: bus, logger: logger}
}

func (s *Service) storeFor(id domain.Identity) cartrepo.Store {
	if id.IsCustomer() {
		return s.customers
	}
	return s.devices
}

// Items returns the owner's cart. The total is recomputed by callers from
// the returned items, never cached.
func (s *Service) Items(ctx context.Context, id domain.Identity) ([]domain.CartItem, error) {
	return s.storeFor(id).List(ctx, id.OwnerID())
}

// Add upserts a product into the cart. The product is resolved first so the
// item carries a price snapshot; adding an unknown product fails outright.
func (s *Service) Add(ctx context.Context, id domain.Identity, productID string, quantity int, locale string) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, &domain.ValidationError{Fields: map[string]string{"quantity": "must be at least 1"}}
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ValidationError{Fields: map[string]string{"productId": "unknown product"}}
		}
		return nil, err
	}

	item, err := s.storeFor(id).Upsert(ctx, id.OwnerID(), productID, quantity, product.SnapshotIn(locale))
	if err != nil {
		s.logger.Printf("cart: add owner=%s product=%s error=%v", id.OwnerID(), productID, err)
		return nil, err
	}
	s.publish(id)
	return item, nil
}

// UpdateQuantity sets an item's quantity; zero or below removes the item.
func (s *Service) UpdateQuantity(ctx context.Context, id domain.Identity, itemID string, quantity int) error {
	if err := s.storeFor(id).SetQuantity(ctx, id.OwnerID(), itemID, quantity); err != nil {
		return err
	}
	s.publish(id)
	return nil
}

func (s *Service) Remove(ctx context.Context, id domain.Identity, itemID string) error {
	if err := s.storeFor(id).Remove(ctx, id.OwnerID(), itemID); err != nil {
		return err
	}
	s.publish(id)
	return nil
}

func (s *Service) Clear(ctx context.Context, id domain.Identity) error {
	if err := s.storeFor(id).Clear(ctx, id.OwnerID()); err != nil {
		return err
	}
	s.publish(id)
	return nil
}

func (s *Service) publish(id domain.Identity) {
	if s.bus != nil {
		s.bus.Publish(id.OwnerID(), events.TopicCartChanged)
	}
}
