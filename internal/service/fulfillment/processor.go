// Package fulfillment turns a verified payment event into an order. It runs
// from the webhook, outside any user request, so everything it needs comes
// from the persisted checkout context and the event itself. Processing is
// idempotent per payment session: the gateway redelivers events.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/mail"
	"storefront/internal/payment"
	"storefront/internal/service/checkout"
	"storefront/internal/shipping"
)

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByStripeSession(ctx context.Context, sessionID string) (*domain.Order, error)
	SetShipped(ctx context.Context, id, carrier, trackingNumber string) error
}

type stockRepo interface {
	DecrementStock(ctx context.Context, id string, quantity int) error
}

type shipmentRepo interface {
	Create(ctx context.Context, s domain.Shipment) (*domain.Shipment, error)
}

type Config struct {
	StoreName     string
	OperatorEmail string
	TrackingBase  string
	ShipFrom      domain.Address
}

type Processor struct {
	store     cache.Store
	orders    orderRepo
	products  stockRepo
	shipments shipmentRepo
	labels    shipping.Client
	mailer    mail.Mailer
	cfg       Config
	logger    *log.Logger
}

func New(store cache.Store, orders orderRepo, products stockRepo, shipments shipmentRepo, labels shipping.Client, mailer mail.Mailer, cfg Config, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Processor{
		store:     store,
		orders:    orders,
		products:  products,
		shipments: shipments,
		labels:    labels,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
	}
}

// HandleSessionCompleted creates the order for a paid session and runs the
// post-payment side effects. The order insert is the one step that must not
// repeat; label purchase, stock and email are best-effort and the order
// rests in processing when the label fails.
func (p *Processor) HandleSessionCompleted(ctx context.Context, sess payment.CompletedSession) error {
	if existing, err := p.orders.GetByStripeSession(ctx, sess.ID); err == nil && existing != nil {
		p.logger.Printf("fulfillment: session %s already fulfilled as order %s", sess.ID, existing.ID)
		return nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var rec checkout.Record
	if err := p.store.GetJSON(ctx, cache.CheckoutSessionKey(sess.ID), &rec); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return fmt.Errorf("no checkout context for session %s", sess.ID)
		}
		return err
	}

	order := domain.Order{
		CustomerID:      rec.CustomerID,
		Email:           rec.Email,
		TotalCents:      rec.TotalCents,
		Currency:        rec.Currency,
		Status:          domain.OrderProcessing,
		PaymentStatus:   domain.PaymentPaid,
		StripeSessionID: sess.ID,
		ShippingAddress: rec.Address,
	}
	// The gateway's figures win where they disagree with ours.
	if sess.AmountTotal > 0 {
		order.TotalCents = sess.AmountTotal
	}
	if sess.CustomerEmail != "" {
		order.Email = sess.CustomerEmail
	}
	for _, item := range rec.Items {
		line := domain.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
		if item.Snapshot != nil {
			line.Name = item.Snapshot.Name
			line.UnitPriceCents = item.Snapshot.PriceCents
		}
		order.Lines = append(order.Lines, line)
	}

	created, err := p.orders.Create(ctx, order)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the race against a concurrent delivery of the same event.
			p.logger.Printf("fulfillment: session %s fulfilled concurrently", sess.ID)
			return nil
		}
		return fmt.Errorf("create order: %w", err)
	}
	p.logger.Printf("fulfillment: order %s created for session %s total=%d", created.ID, sess.ID, created.TotalCents)

	for _, line := range created.Lines {
		if err := p.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			// The money is already captured; an oversell is an operator
			// problem, not a reason to fail the webhook.
			p.logger.Printf("fulfillment: decrement stock order=%s product=%s qty=%d error=%v", created.ID, line.ProductID, line.Quantity, err)
		}
	}

	label := p.purchaseLabel(ctx, created, &rec)
	p.sendConfirmation(ctx, created, label)
	p.notifyOperator(ctx, created, label)

	if err := p.store.Delete(ctx, cache.CheckoutSessionKey(sess.ID)); err != nil {
		p.logger.Printf("fulfillment: drop checkout context session=%s error=%v", sess.ID, err)
	}
	return nil
}

// HandleSessionExpired discards the persisted checkout context for a
// session the customer abandoned at the payment page.
func (p *Processor) HandleSessionExpired(ctx context.Context, sess payment.CompletedSession) error {
	if err := p.store.Delete(ctx, cache.CheckoutSessionKey(sess.ID)); err != nil && !errors.Is(err, cache.ErrMiss) {
		return err
	}
	p.logger.Printf("fulfillment: session %s expired, checkout context dropped", sess.ID)
	return nil
}

// purchaseLabel buys the label for the customer's selected rate and records
// the shipment. On failure the order stays in processing for a manual retry
// from the back office. Returns the purchased label when shipped.
func (p *Processor) purchaseLabel(ctx context.Context, order *domain.Order, rec *checkout.Record) *shipping.Label {
	if rec.Rate == nil {
		p.logger.Printf("fulfillment: order %s has no selected rate, skipping label", order.ID)
		return nil
	}

	label, err := p.labels.PurchaseLabel(ctx, rec.Rate.ID)
	if err != nil {
		p.logger.Printf("fulfillment: purchase label order=%s rate=%s error=%v", order.ID, rec.Rate.ID, err)
		return nil
	}

	shipment := domain.Shipment{
		OrderID:        order.ID,
		Carrier:        label.Carrier,
		Service:        label.Service,
		TrackingNumber: label.TrackingNumber,
		LabelURL:       label.LabelURL,
		Status:         label.Status,
		AddressFrom:    p.cfg.ShipFrom,
		AddressTo:      order.ShippingAddress,
	}
	if shipment.Carrier == "" {
		shipment.Carrier = rec.Rate.Carrier
	}
	if shipment.Service == "" {
		shipment.Service = rec.Rate.Service
	}
	label.Carrier = shipment.Carrier
	label.Service = shipment.Service
	if _, err := p.shipments.Create(ctx, shipment); err != nil {
		p.logger.Printf("fulfillment: record shipment order=%s error=%v", order.ID, err)
		return nil
	}
	if err := p.orders.SetShipped(ctx, order.ID, shipment.Carrier, label.TrackingNumber); err != nil {
		p.logger.Printf("fulfillment: mark shipped order=%s error=%v", order.ID, err)
		return nil
	}
	p.logger.Printf("fulfillment: order %s shipped carrier=%s tracking=%s", order.ID, shipment.Carrier, label.TrackingNumber)
	return label
}

func (p *Processor) sendConfirmation(ctx context.Context, order *domain.Order, label *shipping.Label) {
	if order.Email == "" {
		return
	}
	subject := fmt.Sprintf("%s: order confirmation", p.cfg.StoreName)

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Thank you for your order</h1>")
	fmt.Fprintf(&b, "<p>Order <strong>%s</strong></p><ul>", order.ID)
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "<li>%d × %s</li>", line.Quantity, line.Name)
	}
	fmt.Fprintf(&b, "</ul><p>Total: %.2f %s</p>", float64(order.TotalCents)/100, strings.ToUpper(order.Currency))
	if label != nil && p.cfg.TrackingBase != "" {
		fmt.Fprintf(&b, `<p>Track your parcel: <a href="%s%s">%s</a></p>`, p.cfg.TrackingBase, label.TrackingNumber, label.TrackingNumber)
	}

	if err := p.mailer.Send(ctx, order.Email, subject, b.String()); err != nil {
		p.logger.Printf("fulfillment: confirmation mail order=%s error=%v", order.ID, err)
	}
}

// notifyOperator gives the back office everything needed to pack the parcel:
// the order lines, the destination and, when the label purchase succeeded,
// carrier, tracking number and a link to the printable label.
func (p *Processor) notifyOperator(ctx context.Context, order *domain.Order, label *shipping.Label) {
	if p.cfg.OperatorEmail == "" {
		return
	}
	subject := fmt.Sprintf("%s: new order %s", p.cfg.StoreName, order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>New order %s for %s, total %.2f %s.</p><ul>",
		order.ID, order.Email, float64(order.TotalCents)/100, strings.ToUpper(order.Currency))
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "<li>%d × %s</li>", line.Quantity, line.Name)
	}
	fmt.Fprintf(&b, "</ul>")
	if a := order.ShippingAddress; a.Street != "" {
		fmt.Fprintf(&b, "<p>Ship to: %s, %s, %s %s, %s</p>", a.Name, a.Street, a.PostalCode, a.City, a.Country)
	}
	if label != nil {
		fmt.Fprintf(&b, `<p>Shipped via %s, tracking %s. <a href="%s">Label</a></p>`,
			label.Carrier, label.TrackingNumber, label.LabelURL)
	} else {
		fmt.Fprintf(&b, "<p>No label purchased yet, order needs manual dispatch.</p>")
	}

	if err := p.mailer.Send(ctx, p.cfg.OperatorEmail, subject, b.String()); err != nil {
		p.logger.Printf("fulfillment: operator mail order=%s error=%v", order.ID, err)
	}
}
