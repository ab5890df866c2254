package customer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/service/merge"

	"golang.org/x/crypto/bcrypt"
)

type stubRepo struct {
	byEmail map[string]*domain.Customer
	seq     int
}

func newStubRepo() *stubRepo {
	return &stubRepo{byEmail: map[string]*domain.Customer{}}
}

func (s *stubRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if _, ok := s.byEmail[c.Email]; ok {
		return nil, domain.ErrAlreadyExists
	}
	s.seq++
	c.ID = fmt.Sprintf("cust-%d", s.seq)
	s.byEmail[c.Email] = &c
	return &c, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	for _, c := range s.byEmail {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	if c, ok := s.byEmail[email]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, _, _ int) ([]domain.Customer, error) {
	return nil, nil
}

func (s *stubRepo) UpdateProfile(_ context.Context, id, firstName, lastName, locale string) (*domain.Customer, error) {
	c, err := s.GetByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	c.FirstName, c.LastName, c.Locale = firstName, lastName, locale
	return c, nil
}

func (s *stubRepo) SetAddresses(_ context.Context, id string, addrs []domain.Address) error {
	c, err := s.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	c.Addresses = addrs
	return nil
}

type stubIssuer struct {
	revoked []string
}

func (s *stubIssuer) IssueCustomer(_ context.Context, customerID string) (string, string, error) {
	return "access-" + customerID, "refresh-" + customerID, nil
}

func (s *stubIssuer) RevokeCustomer(_ context.Context, customerID string) error {
	s.revoked = append(s.revoked, customerID)
	return nil
}

type stubMerger struct {
	calls   []string
	cleared []string
	report  merge.Report
}

func (s *stubMerger) MergeOnLogin(_ context.Context, deviceID, customerID string) merge.Report {
	s.calls = append(s.calls, deviceID+"->"+customerID)
	return s.report
}

func (s *stubMerger) ClearMarkers(_ context.Context, customerID string) error {
	s.cleared = append(s.cleared, customerID)
	return nil
}

func newTestService() (*Service, *stubRepo, *stubIssuer, *stubMerger) {
	repo := newStubRepo()
	ids := &stubIssuer{}
	mg := &stubMerger{report: merge.Report{CartItemsMerged: 2}}
	return New(repo, ids, mg, nil), repo, ids, mg
}

func TestSignupAndLogin(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "Ada@Example.com", Password: "correct horse"}, "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.Customer.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %s", res.Customer.Email)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("signup should log the account in")
	}

	login, err := svc.Login(ctx, "ada@example.com", "correct horse", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Customer.ID != res.Customer.ID {
		t.Fatal("login resolved a different account")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "a@b.co", Password: "longenough"}, ""); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@b.co", Password: "longenough"}, ""); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Signup(context.Background(), SignupInput{Email: "not-an-email", Password: "short"}, "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected email and password errors, got %v", verr.Fields)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, _, _ := newTestService()
	hash, _ := bcrypt.GenerateFromPassword([]byte("the-real-one"), bcrypt.MinCost)
	repo.byEmail["ada@example.com"] = &domain.Customer{ID: "cust-1", Email: "ada@example.com", PasswordHash: string(hash)}

	if _, err := svc.Login(context.Background(), "ada@example.com", "guess", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "guess", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look identical, got %v", err)
	}
}

func TestLoginWithDeviceTriggersMerge(t *testing.T) {
	svc, _, _, mg := newTestService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "a@b.co", Password: "longenough"}, "device-7")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if len(mg.calls) != 1 || mg.calls[0] != "device-7->"+res.Customer.ID {
		t.Fatalf("merge not triggered: %v", mg.calls)
	}
	if res.Merge == nil || res.Merge.CartItemsMerged != 2 {
		t.Fatalf("merge report not attached: %+v", res.Merge)
	}

	login, err := svc.Login(ctx, "a@b.co", "longenough", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Merge != nil {
		t.Fatal("no device, no merge")
	}
	if len(mg.calls) != 1 {
		t.Fatalf("merge called again without a device: %v", mg.calls)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, _, ids, mg := newTestService()

	if err := svc.Logout(context.Background(), "cust-9"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(ids.revoked) != 1 || ids.revoked[0] != "cust-9" {
		t.Fatalf("tokens not revoked: %v", ids.revoked)
	}
	if len(mg.cleared) != 1 || mg.cleared[0] != "cust-9" {
		t.Fatalf("merge markers not cleared: %v", mg.cleared)
	}
}

func TestSetAddressesValidates(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.byEmail["a@b.co"] = &domain.Customer{ID: "cust-1", Email: "a@b.co"}

	err := svc.SetAddresses(context.Background(), "cust-1", []domain.Address{{Name: "Ada"}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	good := []domain.Address{{Name: "Ada", Street: "12 Analytical Way", City: "London", Country: "GB"}}
	if err := svc.SetAddresses(context.Background(), "cust-1", good); err != nil {
		t.Fatalf("set addresses: %v", err)
	}
}
