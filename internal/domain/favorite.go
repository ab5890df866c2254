package domain

import "time"

// FavoriteItem marks a product as favorited by an owner. At most one row
// per (owner, product); duplicate adds are reported, not inserted.
type FavoriteItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}
