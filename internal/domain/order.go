package domain

import "time"

// Order statuses. Processing is a valid resting state when the label
// purchase failed; delivered and cancelled are set by admin action.
const (
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// OrderLine is the immutable snapshot of one purchased cart item.
type OrderLine struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// Order is created exactly once per payment confirmation. StripeSessionID
// is the idempotency key, unique at the storage layer.
type Order struct {
	ID              string      `json:"id"`
	CustomerID      *string     `json:"customerId,omitempty"`
	Email           string      `json:"email"`
	TotalCents      int64       `json:"totalCents"`
	Currency        string      `json:"currency"`
	Status          string      `json:"status"`
	PaymentStatus   string      `json:"paymentStatus"`
	StripeSessionID string      `json:"-"`
	ShippingAddress Address     `json:"shippingAddress"`
	Carrier         string      `json:"carrier,omitempty"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	Lines           []OrderLine `json:"lineItems"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Shipment links a purchased label back to its order by a real foreign key.
type Shipment struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	Carrier        string    `json:"carrier"`
	Service        string    `json:"service"`
	TrackingNumber string    `json:"trackingNumber"`
	LabelURL       string    `json:"labelUrl"`
	Status         string    `json:"status"`
	AddressFrom    Address   `json:"addressFrom"`
	AddressTo      Address   `json:"addressTo"`
	CreatedAt      time.Time `json:"createdAt"`
}
