// Package favorites mirrors the cart manager minus quantities. A duplicate
// add is reported back as "already favorited", never an error.
package favorites

import (
	"context"
	"io"
	"log"

	"storefront/internal/domain"
	"storefront/internal/events"
	favrepo "storefront/internal/repository/favorites"
)

type Service struct {
	customers favrepo.Store
	devices   favrepo.Store
	bus       *events.Bus
	logger    *log.Logger
}

func New(customers, devices favrepo.Store, bus *events.Bus, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{customers: customers, devices: devices, bus: bus, logger: logger}
}

func (s *Service) storeFor(id domain.Identity) favrepo.Store {
	if id.IsCustomer() {
		return s.customers
	}
	return s.devices
}

func (s *Service) List(ctx context.Context, id domain.Identity) ([]domain.FavoriteItem, error) {
	return s.storeFor(id).List(ctx, id.OwnerID())
}

// Add favorites a product. created=false means it was already there, which
// the HTTP layer signals distinctly from a fresh insert.
func (s *Service) Add(ctx context.Context, id domain.Identity, productID string) (created bool, err error) {
	created, err = s.storeFor(id).Add(ctx, id.OwnerID(), productID)
	if err != nil {
		s.logger.Printf("favorites: add owner=%s product=%s error=%v", id.OwnerID(), productID, err)
		return false, err
	}
	if created {
		s.publish(id)
	}
	return created, nil
}

func (s *Service) Remove(ctx context.Context, id domain.Identity, productID string) error {
	if err := s.storeFor(id).Remove(ctx, id.OwnerID(), productID); err != nil {
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

// IsFavorite is a pure lookup over the loaded set.
func (s *Service) IsFavorite(ctx context.Context, id domain.Identity, productID string) (bool, error) {
	items, err := s.List(ctx, id)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) publish(id domain.Identity) {
	if s.bus != nil {
		s.bus.Publish(id.OwnerID(), events.TopicFavoritesChanged)
	}
}
