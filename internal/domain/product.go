package domain

import "time"

// Product is a catalog entry. Names and descriptions are localized maps
// keyed by language tag; callers pick a locale with Name/DescriptionIn.
type Product struct {
	ID           string            `json:"id"`
	Slug         string            `json:"slug"`
	Names        map[string]string `json:"names"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
	Category     string            `json:"category,omitempty"`
	PriceCents   int64             `json:"priceCents"`
	Currency     string            `json:"currency"`
	Stock        int               `json:"stock"`
	ImageURL     string            `json:"imageUrl,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

const defaultLocale = "en"

// NameIn returns the product name for the locale, falling back to English
// and then to any available translation.
func (p Product) NameIn(locale string) string {
	return pickLocalized(p.Names, locale)
}

// DescriptionIn is NameIn for descriptions.
func (p Product) DescriptionIn(locale string) string {
	return pickLocalized(p.Descriptions, locale)
}

func pickLocalized(m map[string]string, locale string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[locale]; ok && v != "" {
		return v
	}
	if v, ok := m[defaultLocale]; ok && v != "" {
		return v
	}
	for _, v := range m {
		if v != "" {
			return v
		}
	}
	return ""
}

// SnapshotIn freezes the fields carried into cart items and order lines.
func (p Product) SnapshotIn(locale string) *ProductSnapshot {
	return &ProductSnapshot{
		Name:       p.NameIn(locale),
		Slug:       p.Slug,
		PriceCents: p.PriceCents,
		Currency:   p.Currency,
		ImageURL:   p.ImageURL,
	}
}
