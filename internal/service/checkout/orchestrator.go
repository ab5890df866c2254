// Package checkout drives the address → validate → quote → select → pay
// pipeline. Each checkout is a server-side session persisted in the device
// cache; the full context is re-keyed under the payment session id at
// submit time so fulfillment can recover it after the external redirect.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"storefront/internal/address"
	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/shipping"

	"github.com/google/uuid"
)

type State string

const (
	StateCollectingAddress State = "collecting_address"
	StateAddressValid      State = "address_valid"
	StateRatesQuoted       State = "rates_quoted"
	StateRateSelected      State = "rate_selected"
	StateSubmitted         State = "submitted"
)

// Session is one in-flight checkout.
type Session struct {
	ID             string            `json:"id"`
	Owner          string            `json:"-"`
	CustomerID     *string           `json:"customerId,omitempty"`
	Email          string            `json:"email,omitempty"`
	State          State             `json:"state"`
	Items          []domain.CartItem `json:"items"`
	TotalCents     int64             `json:"totalCents"`
	Address        *domain.Address   `json:"address,omitempty"`
	Rates          []shipping.Rate   `json:"rates,omitempty"`
	SelectedRateID string            `json:"selectedRateId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func (s *Session) selectedRate() *shipping.Rate {
	for i := range s.Rates {
		if s.Rates[i].ID == s.SelectedRateID {
			return &s.Rates[i]
		}
	}
	return nil
}

// Record is the context persisted under the payment session id. The
// fulfillment processor runs after an external redirect with none of the
// orchestrator's in-memory state, so everything it needs lives here.
type Record struct {
	CheckoutID string            `json:"checkoutId"`
	Owner      string            `json:"owner"`
	CustomerID *string           `json:"customerId,omitempty"`
	Email      string            `json:"email"`
	Items      []domain.CartItem `json:"items"`
	Address    domain.Address    `json:"address"`
	Rate       *shipping.Rate    `json:"rate,omitempty"`
	Currency   string            `json:"currency"`
	TotalCents int64             `json:"totalCents"`
}

type cartReader interface {
	Items(ctx context.Context, id domain.Identity) ([]domain.CartItem, error)
}

type Config struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	ShipFrom   domain.Address
	TTL        time.Duration
}

type Orchestrator struct {
	store     cache.Store
	carts     cartReader
	validator address.Validator
	rates     shipping.Client
	gateway   payment.Gateway
	cfg       Config
	logger    *log.Logger
}

func New(store cache.Store, carts cartReader, validator address.Validator, rates shipping.Client, gateway payment.Gateway, cfg Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Orchestrator{store: store, carts: carts, validator: validator, rates: rates, gateway: gateway, cfg: cfg, logger: logger}
}

// Start snapshots the current cart into a new checkout session.
func (o *Orchestrator) Start(ctx context.Context, id domain.Identity, email string) (*Session, error) {
	items, err := o.carts.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, it := range items {
		if it.Snapshot == nil {
			return nil, fmt.Errorf("product %s has no price snapshot", it.ProductID)
		}
	}

	sess := &Session{
		ID:         uuid.NewString(),
		Owner:      id.OwnerID(),
		Email:      strings.TrimSpace(email),
		State:      StateCollectingAddress,
		Items:      items,
		TotalCents: domain.CartTotalCents(items),
		CreatedAt:  time.Now().UTC(),
	}
	if id.IsCustomer() {
		cid := id.CustomerID
		sess.CustomerID = &cid
	}
	if err := o.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (o *Orchestrator) Get(ctx context.Context, id domain.Identity, checkoutID string) (*Session, error) {
	return o.load(ctx, id, checkoutID)
}

// SubmitAddress validates and attaches the shipping address. Changing the
// address resets any quoted rates: they were priced for the old one.
func (o *Orchestrator) SubmitAddress(ctx context.Context, id domain.Identity, checkoutID string, addr domain.Address) (*Session, error) {
	sess, err := o.load(ctx, id, checkoutID)
	if err != nil {
		return nil, err
	}
	if sess.State == StateSubmitted {
		return nil, fmt.Errorf("checkout already submitted")
	}

	if verr := validateAddressFields(addr); verr != nil {
		return nil, verr
	}
	result, err := o.validator.Validate(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &domain.ValidationError{Fields: map[string]string{
			"address": "address could not be verified",
		}}
	}

	sess.Address = &addr
	sess.Rates = nil
	sess.SelectedRateID = ""
	sess.State = StateAddressValid
	if addr.Email != "" {
		sess.Email = addr.Email
	}
	if err := o.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// QuoteRates asks the rate-shopping provider for offers on a parcel sized
// from the cart. Requests are correlated by an atomic per-checkout counter:
// if a newer quote started while this one was in flight, this response is
// discarded instead of overwriting the newer rates.
func (o *Orchestrator) QuoteRates(ctx context.Context, id domain.Identity, checkoutID string) (*Session, error) {
	sess, err := o.load(ctx, id, checkoutID)
	if err != nil {
		return nil, err
	}
	if sess.Address == nil {
		return nil, &domain.ValidationError{Fields: map[string]string{"address": "address required before quoting rates"}}
	}

	// The counter lives outside the session blob so concurrent requests
	// always mint distinct sequence numbers.
	seq, err := o.store.Incr(ctx, cache.CheckoutQuoteSeqKey(checkoutID), o.cfg.TTL)
	if err != nil {
		return nil, err
	}

	parcel := shipping.ParcelForItemCount(domain.CartCount(sess.Items))
	rates, err := o.rates.Quote(ctx, o.cfg.ShipFrom, *sess.Address, parcel)
	if err != nil {
		// The caller presents a retry; the session stays quotable.
		return nil, err
	}

	// Reload and recheck: a newer request may have superseded this one
	// mid-flight.
	sess, loadErr := o.load(ctx, id, checkoutID)
	if loadErr != nil {
		return nil, loadErr
	}
	var current int64
	if err := o.store.GetJSON(ctx, cache.CheckoutQuoteSeqKey(checkoutID), &current); err != nil && !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}
	if current != seq {
		o.logger.Printf("checkout: discarding stale quote checkout=%s seq=%d current=%d", checkoutID, seq, current)
		return sess, nil
	}

	sess.Rates = rates
	sess.State = StateRatesQuoted
	// Cheapest first as the default selection; the user can override any
	// time before payment.
	if idx := shipping.CheapestRate(rates); idx >= 0 {
		sess.SelectedRateID = rates[idx].ID
		sess.State = StateRateSelected
	}
	if err := o.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectRate picks one of the quoted rates; anything else is rejected.
func (o *Orchestrator) SelectRate(ctx context.Context, id domain.Identity, checkoutID, rateID string) (*Session, error) {
	sess, err := o.load(ctx, id, checkoutID)
	if err != nil {
		return nil, err
	}
	if len(sess.Rates) == 0 {
		return nil, &domain.ValidationError{Fields: map[string]string{"rateId": "no rates quoted yet"}}
	}
	found := false
	for _, r := range sess.Rates {
		if r.ID == rateID {
			found = true
			break
		}
	}
	if !found {
		return nil, &domain.ValidationError{Fields: map[string]string{"rateId": "not one of the quoted rates"}}
	}

	sess.SelectedRateID = rateID
	sess.State = StateRateSelected
	if err := o.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Submit creates the hosted payment session. A selected rate is a hard
// precondition, not a UI affordance. On gateway failure the session stays
// in rate_selected; on success the full context is persisted under the
// payment session id and the caller redirects the browser.
func (o *Orchestrator) Submit(ctx context.Context, id domain.Identity, checkoutID string) (redirectURL string, err error) {
	sess, err := o.load(ctx, id, checkoutID)
	if err != nil {
		return "", err
	}
	if sess.State == StateSubmitted {
		return "", fmt.Errorf("checkout already submitted")
	}
	rate := sess.selectedRate()
	if sess.State != StateRateSelected || rate == nil {
		return "", domain.ErrNoRateSelected
	}

	in := payment.SessionInput{
		CustomerEmail: sess.Email,
		SuccessURL:    o.cfg.SuccessURL,
		CancelURL:     o.cfg.CancelURL,
		Metadata: map[string]string{
			"checkout_id": sess.ID,
		},
		Shipping: &payment.ShippingOption{
			DisplayName: rate.Carrier + " " + rate.Service,
			AmountCent:  rate.AmountCents,
			Currency:    o.cfg.Currency,
		},
	}
	for _, item := range sess.Items {
		in.LineItems = append(in.LineItems, payment.LineItem{
			Name:       item.Snapshot.Name,
			AmountCent: item.Snapshot.PriceCents,
			Quantity:   int64(item.Quantity),
			Currency:   o.cfg.Currency,
		})
	}

	paySession, err := o.gateway.CreateSession(in)
	if err != nil {
		o.logger.Printf("checkout: create payment session checkout=%s error=%v", sess.ID, err)
		return "", err
	}

	record := Record{
		CheckoutID: sess.ID,
		Owner:      sess.Owner,
		CustomerID: sess.CustomerID,
		Email:      sess.Email,
		Items:      sess.Items,
		Address:    *sess.Address,
		Rate:       rate,
		Currency:   o.cfg.Currency,
		TotalCents: sess.TotalCents + rate.AmountCents,
	}
	if err := o.store.SetJSON(ctx, cache.CheckoutSessionKey(paySession.ID), record, o.cfg.TTL); err != nil {
		return "", err
	}

	sess.State = StateSubmitted
	if err := o.save(ctx, sess); err != nil {
		return "", err
	}
	return paySession.RedirectURL, nil
}

func validateAddressFields(addr domain.Address) *domain.ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(addr.Name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(addr.Street) == "" {
		fields["street"] = "required"
	}
	if strings.TrimSpace(addr.City) == "" {
		fields["city"] = "required"
	}
	if len(strings.TrimSpace(addr.Country)) != 2 {
		fields["country"] = "two-letter country code required"
	}
	if addr.Email != "" && !strings.Contains(addr.Email, "@") {
		fields["email"] = "invalid email"
	}
	if !address.ValidPostalCode(addr.Country, addr.PostalCode) {
		fields["postalCode"] = "invalid postal code for " + strings.ToUpper(addr.Country)
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func (o *Orchestrator) load(ctx context.Context, id domain.Identity, checkoutID string) (*Session, error) {
	var sess storedSession
	err := o.store.GetJSON(ctx, cache.CheckoutKey(checkoutID), &sess)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	// Owner scoping: a checkout is invisible to anyone but its owner.
	if sess.Owner != id.OwnerID() {
		return nil, domain.ErrNotFound
	}
	return sess.toSession(), nil
}

func (o *Orchestrator) save(ctx context.Context, sess *Session) error {
	return o.store.SetJSON(ctx, cache.CheckoutKey(sess.ID), fromSession(sess), o.cfg.TTL)
}

// storedSession exists because Owner is json:"-" on the API type but must
// survive persistence.
type storedSession struct {
	Session
	Owner string `json:"owner"`
}

func fromSession(s *Session) storedSession {
	return storedSession{Session: *s, Owner: s.Owner}
}

func (s storedSession) toSession() *Session {
	out := s.Session
	out.Owner = s.Owner
	return &out
}
