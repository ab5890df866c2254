package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
	favrepo "storefront/internal/repository/favorites"
)

type fixture struct {
	coord     *Coordinator
	anonCarts cartrepo.Store
	userCarts cartrepo.Store
	anonFavs  favrepo.Store
	userFavs  favrepo.Store
}

func newFixture() *fixture {
	anonCarts := cartrepo.NewDevice(cache.NewMemory(), time.Hour)
	userCarts := cartrepo.NewDevice(cache.NewMemory(), time.Hour)
	anonFavs := favrepo.NewDevice(cache.NewMemory(), time.Hour)
	userFavs := favrepo.NewDevice(cache.NewMemory(), time.Hour)
	coord := New(cache.NewMemory(), time.Hour, anonCarts, userCarts, anonFavs, userFavs, nil)
	return &fixture{coord: coord, anonCarts: anonCarts, userCarts: userCarts, anonFavs: anonFavs, userFavs: userFavs}
}

func TestCartMergeIsAdditive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.anonCarts.Upsert(ctx, "dev-1", "A", 2, nil); err != nil {
		t.Fatalf("seed anon: %v", err)
	}
	if _, err := f.userCarts.Upsert(ctx, "cust-1", "A", 3, nil); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	report := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if report.CartErr != nil {
		t.Fatalf("cart merge: %v", report.CartErr)
	}

	items, err := f.userCarts.List(ctx, "cust-1")
	if err != nil {
		t.Fatalf("list user cart: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one merged item, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected additive quantity 5, got %d", items[0].Quantity)
	}

	anonItems, err := f.anonCarts.List(ctx, "dev-1")
	if err != nil {
		t.Fatalf("list anon cart: %v", err)
	}
	if len(anonItems) != 0 {
		t.Fatalf("anonymous cart must be cleared after merge, %d left", len(anonItems))
	}
}

func TestFavoritesMergeSetDifference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, p := range []string{"A", "B"} {
		if _, err := f.anonFavs.Add(ctx, "dev-1", p); err != nil {
			t.Fatalf("seed anon fav %s: %v", p, err)
		}
	}
	for _, p := range []string{"B", "C"} {
		if _, err := f.userFavs.Add(ctx, "cust-1", p); err != nil {
			t.Fatalf("seed user fav %s: %v", p, err)
		}
	}

	report := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if report.FavoritesErr != nil {
		t.Fatalf("favorites merge: %v", report.FavoritesErr)
	}
	if report.FavoritesTransferred != 1 {
		t.Fatalf("expected transferred count 1 (only A was new), got %d", report.FavoritesTransferred)
	}

	userFavs, err := f.userFavs.List(ctx, "cust-1")
	if err != nil {
		t.Fatalf("list user favs: %v", err)
	}
	got := map[string]bool{}
	for _, it := range userFavs {
		if got[it.ProductID] {
			t.Fatalf("duplicate favorite %s after merge", it.ProductID)
		}
		got[it.ProductID] = true
	}
	for _, want := range []string{"A", "B", "C"} {
		if !got[want] {
			t.Fatalf("expected favorite %s after merge, have %v", want, got)
		}
	}

	anonFavs, err := f.anonFavs.List(ctx, "dev-1")
	if err != nil {
		t.Fatalf("list anon favs: %v", err)
	}
	if len(anonFavs) != 0 {
		t.Fatalf("anonymous favorites must be cleared, %d left", len(anonFavs))
	}
}

func TestMergeRunsOncePerSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.anonCarts.Upsert(ctx, "dev-1", "A", 2, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if first.CartSkipped || first.CartErr != nil {
		t.Fatalf("first merge should run: %+v", first)
	}

	// Same session logs in again with new anonymous items: the marker
	// must prevent a second merge.
	if _, err := f.anonCarts.Upsert(ctx, "dev-1", "A", 7, nil); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	second := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if !second.CartSkipped || !second.FavoritesSkipped {
		t.Fatalf("second merge should be skipped: %+v", second)
	}

	items, err := f.userCarts.List(ctx, "cust-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("second merge must not change the cart: %+v", items)
	}
}

func TestClearMarkersReopensMerge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.anonCarts.Upsert(ctx, "dev-1", "A", 2, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1"); report.CartSkipped {
		t.Fatalf("first merge should run: %+v", report)
	}

	// Logout clears the markers, so the next login merges again.
	if err := f.coord.ClearMarkers(ctx, "cust-1"); err != nil {
		t.Fatalf("clear markers: %v", err)
	}
	if _, err := f.anonCarts.Upsert(ctx, "dev-1", "B", 1, nil); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	report := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if report.CartSkipped || report.CartItemsMerged != 1 {
		t.Fatalf("merge after clear should run: %+v", report)
	}
}

func TestEmptyAnonymousCartCompletesWithoutWrites(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	report := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if report.CartErr != nil || report.CartItemsMerged != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	// Marker is consumed even for the empty case.
	again := f.coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if !again.CartSkipped {
		t.Fatal("empty merge must still complete the session marker")
	}
}

type failingCartStore struct {
	cartrepo.Store
	failAfter int
	upserts   int
}

func (s *failingCartStore) Upsert(ctx context.Context, ownerID, productID string, qty int, snap *domain.ProductSnapshot) (*domain.CartItem, error) {
	if s.upserts >= s.failAfter {
		return nil, errors.New("write failed")
	}
	s.upserts++
	return s.Store.Upsert(ctx, ownerID, productID, qty, snap)
}

func TestCartMergeFailureKeepsAnonymousState(t *testing.T) {
	anonCarts := cartrepo.NewDevice(cache.NewMemory(), time.Hour)
	userCarts := &failingCartStore{Store: cartrepo.NewDevice(cache.NewMemory(), time.Hour), failAfter: 1}
	coord := New(cache.NewMemory(), time.Hour, anonCarts, userCarts,
		favrepo.NewDevice(cache.NewMemory(), time.Hour), favrepo.NewDevice(cache.NewMemory(), time.Hour), nil)
	ctx := context.Background()

	if _, err := anonCarts.Upsert(ctx, "dev-1", "A", 1, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := anonCarts.Upsert(ctx, "dev-1", "B", 1, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	report := coord.MergeOnLogin(ctx, "dev-1", "cust-1")
	if report.CartErr == nil {
		t.Fatal("expected a surfaced merge error")
	}
	if report.CartItemsMerged != 1 {
		t.Fatalf("expected one item applied before the failure, got %d", report.CartItemsMerged)
	}

	// Applied items stay applied (no rollback), anonymous state survives
	// because the clear never ran.
	anonItems, err := anonCarts.List(ctx, "dev-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(anonItems) != 2 {
		t.Fatalf("anonymous cart must survive a failed merge, got %d items", len(anonItems))
	}
}
