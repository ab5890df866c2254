package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden indicates the caller is not allowed to touch the row.
	ErrForbidden = errors.New("forbidden")
	// ErrEmptyCart indicates checkout was started with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoRateSelected indicates payment was attempted before picking a rate.
	ErrNoRateSelected = errors.New("no shipping rate selected")
)

// ValidationError carries per-field messages for bad input. Clients render
// these inline, never as a generic failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// RateQuoteError wraps failures from the rate-shopping provider.
type RateQuoteError struct {
	Err error
}

func (e *RateQuoteError) Error() string { return "rate quote failed: " + e.Err.Error() }
func (e *RateQuoteError) Unwrap() error { return e.Err }

// LabelPurchaseError wraps failures while buying a shipping label.
type LabelPurchaseError struct {
	RateID string
	Err    error
}

func (e *LabelPurchaseError) Error() string {
	return fmt.Sprintf("label purchase failed for rate %s: %v", e.RateID, e.Err)
}
func (e *LabelPurchaseError) Unwrap() error { return e.Err }

// SignatureError marks a webhook payload whose signature did not verify.
// Such requests are rejected outright, nothing is processed.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string { return "webhook signature invalid: " + e.Err.Error() }
func (e *SignatureError) Unwrap() error { return e.Err }
