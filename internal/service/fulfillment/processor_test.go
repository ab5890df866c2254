package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/service/checkout"
	"storefront/internal/shipping"
)

type stubOrders struct {
	bySession map[string]*domain.Order
	shipped   map[string]string
	seq       int
}

func newStubOrders() *stubOrders {
	return &stubOrders{bySession: map[string]*domain.Order{}, shipped: map[string]string{}}
}

func (s *stubOrders) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	if _, ok := s.bySession[o.StripeSessionID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	s.seq++
	o.ID = fmt.Sprintf("order-%d", s.seq)
	o.CreatedAt = time.Now()
	s.bySession[o.StripeSessionID] = &o
	return &o, nil
}

func (s *stubOrders) GetByStripeSession(_ context.Context, sessionID string) (*domain.Order, error) {
	if o, ok := s.bySession[sessionID]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrders) SetShipped(_ context.Context, id, carrier, trackingNumber string) error {
	s.shipped[id] = carrier + "/" + trackingNumber
	return nil
}

type stubStock struct {
	decrements map[string]int
	err        error
}

func (s *stubStock) DecrementStock(_ context.Context, id string, quantity int) error {
	if s.err != nil {
		return s.err
	}
	if s.decrements == nil {
		s.decrements = map[string]int{}
	}
	s.decrements[id] += quantity
	return nil
}

type stubShipments struct {
	created []domain.Shipment
}

func (s *stubShipments) Create(_ context.Context, sh domain.Shipment) (*domain.Shipment, error) {
	sh.ID = fmt.Sprintf("ship-%d", len(s.created)+1)
	s.created = append(s.created, sh)
	return &sh, nil
}

type stubLabels struct {
	label *shipping.Label
	err   error
	calls int
}

func (s *stubLabels) Quote(_ context.Context, _, _ domain.Address, _ shipping.Parcel) ([]shipping.Rate, error) {
	return nil, errors.New("not implemented")
}

func (s *stubLabels) PurchaseLabel(_ context.Context, _ string) (*shipping.Label, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.label, nil
}

func (s *stubLabels) Track(_ context.Context, _, _ string) (*shipping.Tracking, error) {
	return nil, errors.New("not implemented")
}

type sentMail struct {
	to, subject, body string
}

type stubMailer struct {
	sent []sentMail
	err  error
}

func (s *stubMailer) Send(_ context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fixture struct {
	proc      *Processor
	store     *cache.Memory
	orders    *stubOrders
	stock     *stubStock
	shipments *stubShipments
	labels    *stubLabels
	mailer    *stubMailer
}

func newFixture() *fixture {
	f := &fixture{
		store:     cache.NewMemory(),
		orders:    newStubOrders(),
		stock:     &stubStock{},
		shipments: &stubShipments{},
		mailer:    &stubMailer{},
		labels: &stubLabels{label: &shipping.Label{
			TrackingNumber: "TRK123",
			LabelURL:       "https://labels.example/TRK123.pdf",
			Carrier:        "PostNL",
			Service:        "Standard",
			Status:         "SUCCESS",
		}},
	}
	cfg := Config{
		StoreName:     "Atelier",
		OperatorEmail: "ops@atelier.example",
		TrackingBase:  "https://track.example/",
		ShipFrom:      domain.Address{Name: "Warehouse", City: "Rotterdam", Country: "NL"},
	}
	f.proc = New(f.store, f.orders, f.stock, f.shipments, f.labels, f.mailer, cfg, nil)
	return f
}

func seedRecord(t *testing.T, store *cache.Memory, sessionID string) checkout.Record {
	t.Helper()
	cust := "cust-1"
	rec := checkout.Record{
		CheckoutID: "chk-1",
		Owner:      cust,
		CustomerID: &cust,
		Email:      "shopper@example.com",
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2, Snapshot: &domain.ProductSnapshot{Name: "Mug", PriceCents: 1200}},
			{ProductID: "p2", Quantity: 1, Snapshot: &domain.ProductSnapshot{Name: "Plate", PriceCents: 2400}},
		},
		Address:    domain.Address{Name: "Ada", Street: "12 Analytical Way", City: "London", Country: "GB"},
		Rate:       &shipping.Rate{ID: "rate-1", Carrier: "PostNL", Service: "Standard", AmountCents: 495},
		Currency:   "eur",
		TotalCents: 5295,
	}
	if err := store.SetJSON(context.Background(), cache.CheckoutSessionKey(sessionID), rec, time.Hour); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return rec
}

func completedEvent(sessionID string) payment.CompletedSession {
	return payment.CompletedSession{ID: sessionID, AmountTotal: 5295, Currency: "eur"}
}

func TestCompletedCreatesOrderAndShipment(t *testing.T) {
	f := newFixture()
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	order, err := f.orders.GetByStripeSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.Status != domain.OrderProcessing || order.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("unexpected statuses %s/%s", order.Status, order.PaymentStatus)
	}
	if len(order.Lines) != 2 || order.Lines[0].Name != "Mug" {
		t.Fatalf("unexpected lines %+v", order.Lines)
	}

	if f.stock.decrements["p1"] != 2 || f.stock.decrements["p2"] != 1 {
		t.Fatalf("unexpected stock decrements %v", f.stock.decrements)
	}

	if len(f.shipments.created) != 1 {
		t.Fatalf("expected 1 shipment, got %d", len(f.shipments.created))
	}
	if f.shipments.created[0].OrderID != order.ID {
		t.Fatalf("shipment not linked to order")
	}
	if got := f.orders.shipped[order.ID]; got != "PostNL/TRK123" {
		t.Fatalf("order not marked shipped: %q", got)
	}

	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected confirmation and operator mail, got %d", len(f.mailer.sent))
	}
	if f.mailer.sent[0].to != "shopper@example.com" || f.mailer.sent[1].to != "ops@atelier.example" {
		t.Fatalf("unexpected recipients %+v", f.mailer.sent)
	}

	var rec checkout.Record
	if err := f.store.GetJSON(context.Background(), cache.CheckoutSessionKey("cs_1"), &rec); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("checkout context should be dropped, got %v", err)
	}
}

func TestOperatorMailCarriesShippingDetails(t *testing.T) {
	f := newFixture()
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected confirmation and operator mail, got %d", len(f.mailer.sent))
	}
	ops := f.mailer.sent[1]
	if ops.to != "ops@atelier.example" {
		t.Fatalf("operator mail went to %s", ops.to)
	}
	for _, want := range []string{
		"TRK123",
		"https://labels.example/TRK123.pdf",
		"PostNL",
		"12 Analytical Way",
		"2 × Mug",
	} {
		if !strings.Contains(ops.body, want) {
			t.Fatalf("operator mail missing %q:\n%s", want, ops.body)
		}
	}

	shopper := f.mailer.sent[0]
	if !strings.Contains(shopper.body, "https://track.example/TRK123") {
		t.Fatalf("confirmation missing tracking link:\n%s", shopper.body)
	}
}

func TestOperatorMailFlagsMissingLabel(t *testing.T) {
	f := newFixture()
	f.labels.err = &domain.LabelPurchaseError{RateID: "rate-1", Err: errors.New("provider down")}
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	ops := f.mailer.sent[1]
	if !strings.Contains(ops.body, "manual dispatch") {
		t.Fatalf("operator mail should flag the missing label:\n%s", ops.body)
	}
	if strings.Contains(ops.body, "TRK123") {
		t.Fatalf("no tracking expected on label failure:\n%s", ops.body)
	}
}

func TestDuplicateEventCreatesOneOrder(t *testing.T) {
	f := newFixture()
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("redelivery must be acknowledged: %v", err)
	}

	if len(f.orders.bySession) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(f.orders.bySession))
	}
	if f.labels.calls != 1 {
		t.Fatalf("label purchased %d times", f.labels.calls)
	}
}

func TestLabelFailureLeavesOrderProcessing(t *testing.T) {
	f := newFixture()
	f.labels.err = &domain.LabelPurchaseError{RateID: "rate-1", Err: errors.New("provider down")}
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("label failure must not fail the webhook: %v", err)
	}

	order, _ := f.orders.GetByStripeSession(context.Background(), "cs_1")
	if order.Status != domain.OrderProcessing {
		t.Fatalf("order should rest in processing, got %s", order.Status)
	}
	if len(f.shipments.created) != 0 {
		t.Fatalf("no shipment expected on label failure")
	}
	if _, ok := f.orders.shipped[order.ID]; ok {
		t.Fatalf("order must not be marked shipped")
	}
	if len(f.mailer.sent) != 2 {
		t.Fatalf("mails still go out, got %d", len(f.mailer.sent))
	}
}

func TestMailFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("sendgrid 500")
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_1")); err != nil {
		t.Fatalf("mail failure must not fail the webhook: %v", err)
	}
	if len(f.orders.bySession) != 1 {
		t.Fatalf("order should exist despite mail failure")
	}
}

func TestMissingContextFails(t *testing.T) {
	f := newFixture()

	if err := f.proc.HandleSessionCompleted(context.Background(), completedEvent("cs_unknown")); err == nil {
		t.Fatal("expected error when checkout context is gone")
	}
	if len(f.orders.bySession) != 0 {
		t.Fatal("no order should be created without context")
	}
}

func TestGatewayTotalWins(t *testing.T) {
	f := newFixture()
	seedRecord(t, f.store, "cs_1")

	ev := payment.CompletedSession{ID: "cs_1", AmountTotal: 6000, Currency: "eur", CustomerEmail: "corrected@example.com"}
	if err := f.proc.HandleSessionCompleted(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	order, _ := f.orders.GetByStripeSession(context.Background(), "cs_1")
	if order.TotalCents != 6000 {
		t.Fatalf("gateway total should win, got %d", order.TotalCents)
	}
	if order.Email != "corrected@example.com" {
		t.Fatalf("gateway email should win, got %s", order.Email)
	}
}

func TestExpiredDropsContext(t *testing.T) {
	f := newFixture()
	seedRecord(t, f.store, "cs_1")

	if err := f.proc.HandleSessionExpired(context.Background(), payment.CompletedSession{ID: "cs_1"}); err != nil {
		t.Fatalf("expired: %v", err)
	}

	var rec checkout.Record
	if err := f.store.GetJSON(context.Background(), cache.CheckoutSessionKey("cs_1"), &rec); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("context should be gone, got %v", err)
	}
	if len(f.orders.bySession) != 0 {
		t.Fatal("expired session must not create an order")
	}
}
