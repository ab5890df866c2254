// Package customer covers account lifecycle: signup, login, logout and the
// profile and address book behind /me. Logging in from a device with
// anonymous state hands off to the merge coordinator before tokens are
// returned, so the first authenticated read already sees the merged cart.
package customer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"
	customerrepo "storefront/internal/repository/customer"
	"storefront/internal/service/merge"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown email and wrong password.
// Callers must not reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

type identityIssuer interface {
	IssueCustomer(ctx context.Context, customerID string) (access, refresh string, err error)
	RevokeCustomer(ctx context.Context, customerID string) error
}

type merger interface {
	MergeOnLogin(ctx context.Context, deviceID, customerID string) merge.Report
	ClearMarkers(ctx context.Context, customerID string) error
}

type Service struct {
	repo   customerrepo.Repository
	ids    identityIssuer
	merger merger
	logger *log.Logger
}

func New(repo customerrepo.Repository, ids identityIssuer, merger merger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, ids: ids, merger: merger, logger: logger}
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Locale    string
}

// AuthResult is what both signup and login hand back: the account, a token
// pair and, when anonymous state was waiting on the device, the merge
// outcome.
type AuthResult struct {
	Customer     *domain.Customer
	AccessToken  string
	RefreshToken string
	Merge        *merge.Report
}

// Signup registers an account and logs it in. A duplicate email surfaces
// as domain.ErrAlreadyExists.
func (s *Service) Signup(ctx context.Context, in SignupInput, deviceID string) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if verr := validateSignup(in); verr != nil {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, domain.Customer{
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Locale:       in.Locale,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("customer: signup id=%s", created.ID)
	return s.finishAuth(ctx, created, deviceID)
}

// Login verifies credentials and issues a token pair. When deviceID is
// non-empty the device's anonymous cart and favorites are merged into the
// account before returning.
func (s *Service) Login(ctx context.Context, email, password, deviceID string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	cust, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cust.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.finishAuth(ctx, cust, deviceID)
}

func (s *Service) finishAuth(ctx context.Context, cust *domain.Customer, deviceID string) (*AuthResult, error) {
	result := &AuthResult{Customer: cust}
	if deviceID != "" {
		report := s.merger.MergeOnLogin(ctx, deviceID, cust.ID)
		result.Merge = &report
	}

	access, refresh, err := s.ids.IssueCustomer(ctx, cust.ID)
	if err != nil {
		return nil, err
	}
	result.AccessToken = access
	result.RefreshToken = refresh
	return result, nil
}

// Logout revokes every token the account holds, all devices included, and
// drops the merge markers so the next login merges fresh anonymous state.
func (s *Service) Logout(ctx context.Context, customerID string) error {
	if err := s.merger.ClearMarkers(ctx, customerID); err != nil {
		s.logger.Printf("customer: clear merge markers customer=%s error=%v", customerID, err)
	}
	return s.ids.RevokeCustomer(ctx, customerID)
}

func (s *Service) Profile(ctx context.Context, customerID string) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

func (s *Service) UpdateProfile(ctx context.Context, customerID, firstName, lastName, locale string) (*domain.Customer, error) {
	return s.repo.UpdateProfile(ctx, customerID, strings.TrimSpace(firstName), strings.TrimSpace(lastName), locale)
}

// SetAddresses replaces the address book wholesale; the client always
// sends the full list.
func (s *Service) SetAddresses(ctx context.Context, customerID string, addrs []domain.Address) error {
	for i, a := range addrs {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Street) == "" || len(strings.TrimSpace(a.Country)) != 2 {
			return &domain.ValidationError{Fields: map[string]string{
				"addresses": fmt.Sprintf("entry %d is missing name, street or country", i+1),
			}}
		}
	}
	return s.repo.SetAddresses(ctx, customerID, addrs)
}

func validateSignup(in SignupInput) *domain.ValidationError {
	fields := map[string]string{}
	if !strings.Contains(in.Email, "@") || len(in.Email) < 3 {
		fields["email"] = "invalid email"
	}
	if len(in.Password) < 8 {
		fields["password"] = "at least 8 characters"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
