package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"

	"github.com/gin-gonic/gin"
)

// productView is the localized catalog entry the storefront renders. The
// full translation maps stay server-side; the client gets its locale.
type productView struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	InStock     bool   `json:"inStock"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

func toProductView(p domain.Product, locale string) productView {
	return productView{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.NameIn(locale),
		Description: p.DescriptionIn(locale),
		Category:    p.Category,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		InStock:     p.Stock > 0,
		ImageURL:    p.ImageURL,
	}
}

func listProductsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		filter := productrepo.ListFilter{
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Limit:    limit,
			Offset:   offset,
		}

		products, err := deps.Products.List(c.Request.Context(), filter)
		if err != nil {
			writeError(c, err)
			return
		}

		locale := requestLocale(c)
		views := make([]productView, 0, len(products))
		for _, p := range products {
			views = append(views, toProductView(p, locale))
		}
		c.JSON(http.StatusOK, gin.H{"products": views, "count": len(views)})
	}
}

// getProductHandler accepts either the product id or its slug; slugs carry
// no dashes-and-hex shape we could sniff, so try the id first.
func getProductHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("id")

		p, err := deps.Products.Get(c.Request.Context(), key)
		if errors.Is(err, domain.ErrNotFound) {
			p, err = deps.Products.GetBySlug(c.Request.Context(), key)
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toProductView(*p, requestLocale(c)))
	}
}

// requestLocale picks the client's language: explicit query param first,
// then the first Accept-Language tag.
func requestLocale(c *gin.Context) string {
	if l := c.Query("locale"); l != "" {
		return l
	}
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return "en"
	}
	tag := strings.TrimSpace(strings.SplitN(header, ",", 2)[0])
	if i := strings.IndexAny(tag, "-;"); i > 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return "en"
	}
	return strings.ToLower(tag)
}
