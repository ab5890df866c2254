// Package payment wraps the hosted payment gateway: creating a checkout
// session the browser is redirected to, and verifying signed webhook events
// delivered after the customer pays.
package payment

import (
	"encoding/json"
	"fmt"

	"storefront/internal/domain"

	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// LineItem is one priced row of the session.
type LineItem struct {
	Name       string
	AmountCent int64
	Quantity   int64
	Currency   string
}

// ShippingOption is the customer-selected rate, billed as a fixed amount.
type ShippingOption struct {
	DisplayName string
	AmountCent  int64
	Currency    string
}

type SessionInput struct {
	LineItems     []LineItem
	Shipping      *ShippingOption
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type Session struct {
	ID          string
	RedirectURL string
}

// CompletedSession is the slice of a completed checkout session the
// fulfillment processor needs.
type CompletedSession struct {
	ID            string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// Event is a verified webhook delivery.
type Event struct {
	Type    string
	Session CompletedSession
}

type Gateway interface {
	CreateSession(in SessionInput) (*Session, error)
	// VerifyEvent checks the webhook signature before anything is parsed;
	// a bad signature is a SignatureError and the request dies with 400.
	VerifyEvent(payload []byte, sigHeader string) (*Event, error)
}

type stripeGateway struct {
	webhookSecret string
}

func NewStripe(apiKey, webhookSecret string) Gateway {
	stripe.Key = apiKey
	return &stripeGateway{webhookSecret: webhookSecret}
}

func (g *stripeGateway) CreateSession(in SessionInput) (*Session, error) {
	if len(in.LineItems) == 0 {
		return nil, fmt.Errorf("no line items")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	for _, li := range in.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(li.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(li.Currency),
				UnitAmount: stripe.Int64(li.AmountCent),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
			},
		})
	}
	if in.Shipping != nil {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				DisplayName: stripe.String(in.Shipping.DisplayName),
				Type:        stripe.String("fixed_amount"),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(in.Shipping.AmountCent),
					Currency: stripe.String(in.Shipping.Currency),
				},
			},
		}}
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: s.ID, RedirectURL: s.URL}, nil
}

func (g *stripeGateway) VerifyEvent(payload []byte, sigHeader string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, &domain.SignatureError{Err: err}
	}

	out := &Event{Type: string(ev.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = CompletedSession{
			ID:          s.ID,
			AmountTotal: s.AmountTotal,
			Currency:    string(s.Currency),
			Metadata:    s.Metadata,
		}
		if s.CustomerDetails != nil {
			out.Session.CustomerEmail = s.CustomerDetails.Email
		}
		if out.Session.CustomerEmail == "" {
			out.Session.CustomerEmail = s.CustomerEmail
		}
	}
	return out, nil
}
