package token

import (
	"context"
	"time"
)

// Token kinds. Device tokens identify anonymous visitors and are minted
// once per device; access/refresh tokens belong to logged-in customers.
const (
	KindDevice  = "device"
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type Token struct {
	Token      string
	CustomerID *string
	DeviceID   *string
	Kind       string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	DeleteByCustomer(ctx context.Context, customerID string) error
}
