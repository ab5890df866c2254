package order

import (
	"context"

	"storefront/internal/domain"
)

type ListFilter struct {
	CustomerID string
	Status     string
	Limit      int
	Offset     int
}

// Summary backs the admin dashboard: order counts by status and captured
// revenue. Heavy analytics stay out; these are two cheap aggregates.
type Summary struct {
	CountsByStatus map[string]int `json:"countsByStatus"`
	RevenueCents   int64          `json:"revenueCents"`
}

type Repository interface {
	// Create inserts a new order. A duplicate stripe session id returns
	// domain.ErrAlreadyExists via the unique index, which is the real
	// idempotency guarantee behind the processor's existence check.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByStripeSession(ctx context.Context, sessionID string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	SetShipped(ctx context.Context, id, carrier, trackingNumber string) error
	SetStatus(ctx context.Context, id, status string) error
	Summarize(ctx context.Context) (*Summary, error)
}
