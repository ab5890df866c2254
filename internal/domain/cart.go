package domain

import "time"

// ProductSnapshot is the slice of product data frozen into a cart item at
// add time. Totals fall back to it when the live product row is not loaded;
// a nil snapshot contributes zero rather than failing.
type ProductSnapshot struct {
	Name       string `json:"name"`
	Slug       string `json:"slug,omitempty"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// CartItem is one product in an owner's cart. At most one row exists per
// (owner, product); adding an existing product increments Quantity instead.
type CartItem struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"-"`
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Snapshot  *ProductSnapshot `json:"product,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CartTotalCents sums quantity times snapshot price across items. Items
// whose product has not resolved yet count as zero; callers recompute once
// product data loads instead of caching a stale total.
func CartTotalCents(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		if it.Snapshot == nil {
			continue
		}
		total += int64(it.Quantity) * it.Snapshot.PriceCents
	}
	return total
}

// CartCount is the badge value: total quantity across all items.
func CartCount(items []CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
