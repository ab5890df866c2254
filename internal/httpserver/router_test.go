package httpserver

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/events"
	cartrepo "storefront/internal/repository/cart"
	favrepo "storefront/internal/repository/favorites"
	orderrepo "storefront/internal/repository/order"
	cartsvc "storefront/internal/service/cart"
	favoritessvc "storefront/internal/service/favorites"
	identitysvc "storefront/internal/service/identity"

	"github.com/gin-gonic/gin"
)

// stubResolver maps fixed bearer tokens onto identities.
type stubResolver struct {
	tokens map[string]domain.Identity
}

func (s *stubResolver) Resolve(_ context.Context, bearer string) (domain.Identity, error) {
	if id, ok := s.tokens[bearer]; ok {
		return id, nil
	}
	return domain.Identity{}, identitysvc.ErrInvalidToken
}

func (s *stubResolver) IssueDevice(_ context.Context) (string, string, error) {
	return "device-token", "device-1", nil
}

func (s *stubResolver) Refresh(_ context.Context, _ string) (string, error) {
	return "fresh-access", nil
}

type stubProducts struct {
	byID map[string]*domain.Product
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

type stubAccounts struct {
	byID map[string]*domain.Customer
}

func (s *stubAccounts) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	if c, ok := s.byID[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubAccounts) List(_ context.Context, _, _ int) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, c := range s.byID {
		out = append(out, *c)
	}
	return out, nil
}

type stubOrdersRepo struct {
	orders  []domain.Order
	summary orderrepo.Summary
}

func (s *stubOrdersRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	o.ID = "order-1"
	s.orders = append(s.orders, o)
	return &o, nil
}

func (s *stubOrdersRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrdersRepo) GetByStripeSession(_ context.Context, sessionID string) (*domain.Order, error) {
	for i := range s.orders {
		if s.orders[i].StripeSessionID == sessionID {
			return &s.orders[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrdersRepo) List(_ context.Context, filter orderrepo.ListFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if filter.CustomerID != "" && (o.CustomerID == nil || *o.CustomerID != filter.CustomerID) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOrdersRepo) SetShipped(_ context.Context, _, _, _ string) error { return nil }
func (s *stubOrdersRepo) SetStatus(_ context.Context, _, _ string) error     { return nil }

func (s *stubOrdersRepo) Summarize(_ context.Context) (*orderrepo.Summary, error) {
	return &s.summary, nil
}

type testEnv struct {
	router   *gin.Engine
	deps     Deps
	orders   *stubOrdersRepo
	products *stubProducts
}

// newTestEnv wires real cart and favorites services over in-memory device
// stores and stubs everything external. Tokens: "anon" resolves to device
// d1, "user" to customer c1, "admin" to customer c2 with the admin flag.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(os.Stderr, "[test] ", 0)

	mem := cache.NewMemory()
	bus := events.NewBus()
	products := &stubProducts{byID: map[string]*domain.Product{
		"p1": {ID: "p1", Slug: "mug", Names: map[string]string{"en": "Mug"}, PriceCents: 1200, Currency: "eur", Stock: 10},
	}}

	anonCarts := cartrepo.NewDevice(mem, time.Hour)
	userCarts := cartrepo.NewDevice(mem, time.Hour)
	anonFavs := favrepo.NewDevice(mem, time.Hour)
	userFavs := favrepo.NewDevice(mem, time.Hour)

	resolver := &stubResolver{tokens: map[string]domain.Identity{
		"anon":  {Kind: domain.IdentityAnonymous, DeviceID: "d1"},
		"user":  {Kind: domain.IdentityCustomer, CustomerID: "c1"},
		"admin": {Kind: domain.IdentityCustomer, CustomerID: "c2"},
	}}
	accounts := &stubAccounts{byID: map[string]*domain.Customer{
		"c1": {ID: "c1", Email: "user@example.com"},
		"c2": {ID: "c2", Email: "admin@example.com", IsAdmin: true},
	}}
	orders := &stubOrdersRepo{summary: orderrepo.Summary{
		CountsByStatus: map[string]int{"processing": 2},
		RevenueCents:   9900,
	}}

	deps := Deps{
		Identity:    resolver,
		AccountRepo: accounts,
		Carts:       cartsvc.New(userCarts, anonCarts, products, bus, logger),
		Favorites:   favoritessvc.New(userFavs, anonFavs, bus, logger),
		Orders:      orders,
		Bus:         bus,
	}

	return &testEnv{
		router:   buildRouter(logger, nil, deps, nil),
		deps:     deps,
		orders:   orders,
		products: products,
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCartRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/cart", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/cart", "garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
}

func TestAdminGateBlocksNonAdmins(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/admin/dashboard", "user", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodGet, "/api/admin/dashboard", "admin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "9900") {
		t.Fatalf("summary not rendered: %s", rec.Body.String())
	}
}

func TestAdminGateRequiresCustomer(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/admin/dashboard", "anon", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("device tokens must not reach admin, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
