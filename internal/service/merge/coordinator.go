// Package merge reconciles a device's anonymous cart and favorites into a
// customer's account when they log in, exactly once per authenticated
// session. Partial merges are preferred over blocking login: failures stop
// the loop and are surfaced, but nothing already applied is rolled back.
package merge

import (
	"context"
	"io"
	"log"
	"time"

	"storefront/internal/cache"
	cartrepo "storefront/internal/repository/cart"
	favrepo "storefront/internal/repository/favorites"
)

const (
	domainCart      = "cart"
	domainFavorites = "favorites"
)

type Coordinator struct {
	markers   cache.Store
	markerTTL time.Duration
	anonCarts cartrepo.Store
	userCarts cartrepo.Store
	anonFavs  favrepo.Store
	userFavs  favrepo.Store
	logger    *log.Logger
}

func New(markers cache.Store, markerTTL time.Duration, anonCarts, userCarts cartrepo.Store, anonFavs, userFavs favrepo.Store, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Coordinator{
		markers:   markers,
		markerTTL: markerTTL,
		anonCarts: anonCarts,
		userCarts: userCarts,
		anonFavs:  anonFavs,
		userFavs:  userFavs,
		logger:    logger,
	}
}

// Report tells the login path what happened. Errors are carried rather
// than returned: a failed merge is a notification, never a login blocker.
type Report struct {
	CartItemsMerged      int
	FavoritesTransferred int
	CartSkipped          bool
	FavoritesSkipped     bool
	CartErr              error
	FavoritesErr         error
}

// MergeOnLogin runs both domain merges for a fresh login from a device.
// Each domain is gated by an atomic check-and-set marker keyed by
// (customer, domain), so concurrent logins from two tabs or two instances
// merge at most once.
func (c *Coordinator) MergeOnLogin(ctx context.Context, deviceID, customerID string) Report {
	var report Report

	if c.acquire(ctx, customerID, domainCart) {
		report.CartItemsMerged, report.CartErr = c.mergeCart(ctx, deviceID, customerID)
		if report.CartErr != nil {
			c.logger.Printf("merge: cart device=%s customer=%s error=%v", deviceID, customerID, report.CartErr)
		}
	} else {
		report.CartSkipped = true
	}

	if c.acquire(ctx, customerID, domainFavorites) {
		report.FavoritesTransferred, report.FavoritesErr = c.mergeFavorites(ctx, deviceID, customerID)
		if report.FavoritesErr != nil {
			c.logger.Printf("merge: favorites device=%s customer=%s error=%v", deviceID, customerID, report.FavoritesErr)
		}
	} else {
		report.FavoritesSkipped = true
	}

	return report
}

// ClearMarkers drops the per-session merge markers so the customer's next
// login merges again. Called on logout.
func (c *Coordinator) ClearMarkers(ctx context.Context, customerID string) error {
	for _, domain := range []string{domainCart, domainFavorites} {
		if err := c.markers.Delete(ctx, cache.MergeMarkerKey(customerID, domain)); err != nil {
			return err
		}
	}
	return nil
}

// acquire marks the domain merged for this session. Setting the marker
// before the merge runs means a handled failure still counts as completed;
// retrying would re-add quantities that may already have been applied.
func (c *Coordinator) acquire(ctx context.Context, customerID, domain string) bool {
	ok, err := c.markers.SetNX(ctx, cache.MergeMarkerKey(customerID, domain), c.markerTTL)
	if err != nil {
		c.logger.Printf("merge: marker customer=%s domain=%s error=%v", customerID, domain, err)
		return false
	}
	return ok
}

// mergeCart applies the anonymous cart additively onto the customer's.
// The device blob is deleted only after every write succeeded, so anonymous
// data is delivered at least once.
func (c *Coordinator) mergeCart(ctx context.Context, deviceID, customerID string) (int, error) {
	anonItems, err := c.anonCarts.List(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	if len(anonItems) == 0 {
		return 0, nil
	}

	merged := 0
	for _, item := range anonItems {
		// Upsert adds to an existing row's quantity, which is exactly the
		// additive merge: remote 3 + anonymous 2 ends at 5.
		if _, err := c.userCarts.Upsert(ctx, customerID, item.ProductID, item.Quantity, item.Snapshot); err != nil {
			return merged, err
		}
		merged++
	}

	if err := c.anonCarts.Clear(ctx, deviceID); err != nil {
		return merged, err
	}
	return merged, nil
}

// mergeFavorites transfers the set difference. The duplicate-skipping Add
// makes that implicit: only rows actually created count as transferred.
func (c *Coordinator) mergeFavorites(ctx context.Context, deviceID, customerID string) (int, error) {
	anonItems, err := c.anonFavs.List(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	if len(anonItems) == 0 {
		return 0, nil
	}

	transferred := 0
	for _, item := range anonItems {
		created, err := c.userFavs.Add(ctx, customerID, item.ProductID)
		if err != nil {
			return transferred, err
		}
		if created {
			transferred++
		}
	}

	if err := c.anonFavs.Clear(ctx, deviceID); err != nil {
		return transferred, err
	}
	return transferred, nil
}
