package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"storefront/internal/domain"
)

func TestAddAndListCart(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/api/cart/items", "anon", `{"productId":"p1","quantity":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.router, http.MethodGet, "/api/cart", "anon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}

	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.TotalCents != 2400 {
		t.Fatalf("unexpected cart %+v", resp)
	}
	if resp.Items[0].Snapshot == nil || resp.Items[0].Snapshot.Name != "Mug" {
		t.Fatalf("snapshot missing: %+v", resp.Items[0])
	}
}

func TestAddUnknownProductIsUnprocessable(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/api/cart/items", "anon", `{"productId":"ghost","quantity":1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCartsAreIsolatedPerIdentity(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/api/cart/items", "anon", `{"productId":"p1","quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: got %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodGet, "/api/cart", "user", "")
	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("customer cart should be empty, got %+v", resp)
	}
}

func TestRemoveMissingCartItemIs404(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodDelete, "/api/cart/items/no-such-item", "anon", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFavoriteTwiceReportsAlreadyExists(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPut, "/api/favorites/p1", "anon", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("first favorite: expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodPut, "/api/favorites/p1", "anon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("second favorite: expected 200, got %d", rec.Code)
	}
	var resp struct {
		AlreadyExists bool `json:"alreadyExists"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.AlreadyExists {
		t.Fatalf("expected alreadyExists=true: %s", rec.Body.String())
	}
}

func TestClearFavorites(t *testing.T) {
	env := newTestEnv(t)

	for _, pid := range []string{"p1", "p2"} {
		if rec := doJSON(t, env.router, http.MethodPut, "/api/favorites/"+pid, "anon", ""); rec.Code != http.StatusCreated {
			t.Fatalf("favorite %s: expected 201, got %d", pid, rec.Code)
		}
	}

	if rec := doJSON(t, env.router, http.MethodDelete, "/api/favorites", "anon", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", rec.Code)
	}

	rec := doJSON(t, env.router, http.MethodGet, "/api/favorites", "anon", "")
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("favorites should be empty after clear, got %d", resp.Count)
	}
}

func TestMyOrdersScopedToCustomer(t *testing.T) {
	env := newTestEnv(t)
	c1, other := "c1", "c9"
	env.orders.orders = []domain.Order{
		{ID: "order-a", CustomerID: &c1, Email: "user@example.com"},
		{ID: "order-b", CustomerID: &other, Email: "someone@example.com"},
	}

	rec := doJSON(t, env.router, http.MethodGet, "/api/me/orders", "user", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].ID != "order-a" {
		t.Fatalf("expected only own orders, got %+v", resp.Orders)
	}

	// Fetching someone else's order by id is a 404, not a 403.
	rec = doJSON(t, env.router, http.MethodGet, "/api/me/orders/order-b", "user", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order, got %d", rec.Code)
	}
}
