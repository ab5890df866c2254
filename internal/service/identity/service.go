// Package identity resolves who a request belongs to: an anonymous device
// or a logged-in customer. Every other component consults the resolved
// Identity instead of inspecting auth state itself.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"

	"github.com/google/uuid"
)

// ErrInvalidToken indicates the bearer token is unknown or expired.
var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	tokens     tokenrepo.Repository
	deviceTTL  time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(tokens tokenrepo.Repository) *Service {
	return &Service{
		tokens: tokens,
		// Device tokens are deliberately long-lived: the device id is the
		// stable anonymous key for favorites and must survive cart expiry.
		deviceTTL:  365 * 24 * time.Hour,
		accessTTL:  48 * time.Hour,
		refreshTTL: 30 * 24 * time.Hour,
	}
}

// IssueDevice mints a device id and its bearer token. Called once per
// device; the client persists both and sends the token on every request.
func (s *Service) IssueDevice(ctx context.Context) (token, deviceID string, err error) {
	deviceID = uuid.NewString()
	token, err = randomToken()
	if err != nil {
		return "", "", err
	}
	err = s.tokens.Create(ctx, tokenrepo.Token{
		Token:     token,
		DeviceID:  &deviceID,
		Kind:      tokenrepo.KindDevice,
		ExpiresAt: time.Now().Add(s.deviceTTL),
	})
	if err != nil {
		return "", "", err
	}
	return token, deviceID, nil
}

// IssueCustomer creates access and refresh tokens after login.
func (s *Service) IssueCustomer(ctx context.Context, customerID string) (access, refresh string, err error) {
	access, err = s.issue(ctx, customerID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.issue(ctx, customerID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Resolve maps a bearer token to an Identity. Expired and unknown tokens
// are both ErrInvalidToken; refresh tokens do not authenticate requests.
func (s *Service) Resolve(ctx context.Context, bearer string) (domain.Identity, error) {
	t, err := s.tokens.Get(ctx, bearer)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{}, err
	}
	if time.Now().After(t.ExpiresAt) {
		_ = s.tokens.Delete(ctx, bearer)
		return domain.Identity{}, ErrInvalidToken
	}

	switch t.Kind {
	case tokenrepo.KindDevice:
		if t.DeviceID == nil {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{Kind: domain.IdentityAnonymous, DeviceID: *t.DeviceID}, nil
	case tokenrepo.KindAccess:
		if t.CustomerID == nil {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{Kind: domain.IdentityCustomer, CustomerID: *t.CustomerID}, nil
	default:
		return domain.Identity{}, ErrInvalidToken
	}
}

// Refresh exchanges a refresh token for a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	t, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if t.Kind != tokenrepo.KindRefresh || t.CustomerID == nil || time.Now().After(t.ExpiresAt) {
		return "", ErrInvalidToken
	}
	return s.issue(ctx, *t.CustomerID, tokenrepo.KindAccess, s.accessTTL)
}

// RevokeCustomer drops every session of a customer, used on logout.
func (s *Service) RevokeCustomer(ctx context.Context, customerID string) error {
	return s.tokens.DeleteByCustomer(ctx, customerID)
}

func (s *Service) issue(ctx context.Context, customerID, kind string, ttl time.Duration) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	err = s.tokens.Create(ctx, tokenrepo.Token{
		Token:      token,
		CustomerID: &customerID,
		Kind:       kind,
		ExpiresAt:  time.Now().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
