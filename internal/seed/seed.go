// Package seed loads a small localized catalog for development and, when
// the SEED_ADMIN_* variables are set, a back-office account.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type seedProduct struct {
	slug         string
	names        map[string]string
	descriptions map[string]string
	category     string
	priceCents   int64
	currency     string
	stock        int
	imageURL     string
}

var catalog = []seedProduct{
	{
		slug:         "stoneware-mug",
		names:        map[string]string{"en": "Stoneware Mug", "de": "Steinzeugbecher", "fr": "Mug en grès"},
		descriptions: map[string]string{"en": "Hand-thrown stoneware mug, 300ml.", "de": "Handgetöpferter Becher aus Steinzeug, 300ml."},
		category:     "tableware",
		priceCents:   1800,
		currency:     "usd",
		stock:        40,
		imageURL:     "/images/stoneware-mug.jpg",
	},
	{
		slug:         "linen-apron",
		names:        map[string]string{"en": "Linen Apron", "de": "Leinenschürze", "fr": "Tablier en lin"},
		descriptions: map[string]string{"en": "Washed linen apron with leather straps."},
		category:     "kitchen",
		priceCents:   5400,
		currency:     "usd",
		stock:        15,
		imageURL:     "/images/linen-apron.jpg",
	},
	{
		slug:         "olive-board",
		names:        map[string]string{"en": "Olive Wood Board", "de": "Olivenholzbrett", "fr": "Planche en bois d'olivier"},
		descriptions: map[string]string{"en": "Serving board cut from a single piece of olive wood."},
		category:     "kitchen",
		priceCents:   3600,
		currency:     "usd",
		stock:        22,
		imageURL:     "/images/olive-board.jpg",
	},
	{
		slug:         "ceramic-vase",
		names:        map[string]string{"en": "Ceramic Vase", "de": "Keramikvase", "fr": "Vase en céramique"},
		descriptions: map[string]string{"en": "Matte-glazed vase, fits a small bouquet."},
		category:     "decor",
		priceCents:   4200,
		currency:     "usd",
		stock:        8,
		imageURL:     "/images/ceramic-vase.jpg",
	},
	{
		slug:         "wool-throw",
		names:        map[string]string{"en": "Wool Throw", "de": "Wolldecke", "fr": "Plaid en laine"},
		descriptions: map[string]string{"en": "Lambswool throw, 130x180cm."},
		category:     "decor",
		priceCents:   9800,
		currency:     "usd",
		stock:        12,
		imageURL:     "/images/wool-throw.jpg",
	},
}

// Apply inserts the sample catalog. Existing slugs are left untouched, so
// the seed is safe to re-run.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range catalog {
		_, err := pool.Exec(ctx, `
INSERT INTO products (slug, names, descriptions, category, price_cents, currency, stock, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (slug) DO NOTHING
`, p.slug, p.names, p.descriptions, p.category, p.priceCents, p.currency, p.stock, p.imageURL)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.slug, err)
		}
	}

	return seedAdmin(ctx, pool)
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
INSERT INTO customers (email, password_hash, is_admin)
VALUES ($1, $2, true)
ON CONFLICT (email) DO UPDATE SET is_admin = true
`, email, string(hash))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
