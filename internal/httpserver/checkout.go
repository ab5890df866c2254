package httpserver

import (
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type checkoutAddressRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (r checkoutAddressRequest) toAddress() domain.Address {
	return domain.Address{
		Name:       r.Name,
		Email:      r.Email,
		Street:     r.Street,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}

func startCheckoutHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		// Body is optional; logged-in customers need no email here.
		_ = c.ShouldBindJSON(&req)

		id, _ := currentIdentity(c)
		sess, err := deps.Checkout.Start(c.Request.Context(), id, req.Email)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sess)
	}
}

func getCheckoutHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		sess, err := deps.Checkout.Get(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

func checkoutAddressHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		id, _ := currentIdentity(c)
		sess, err := deps.Checkout.SubmitAddress(c.Request.Context(), id, c.Param("id"), req.toAddress())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

func checkoutRatesHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		sess, err := deps.Checkout.QuoteRates(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

func checkoutSelectRateHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RateID string `json:"rateId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.RateID == "" {
			badRequest(c, "rateId required")
			return
		}

		id, _ := currentIdentity(c)
		sess, err := deps.Checkout.SelectRate(c.Request.Context(), id, c.Param("id"), req.RateID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

func checkoutSubmitHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		url, err := deps.Checkout.Submit(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"redirectUrl": url})
	}
}

// suggestAddressHandler proxies forward-geocoding for the address form's
// autocomplete. Public: it fires on every few keystrokes, before any
// checkout exists.
func suggestAddressHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if len(query) < 3 {
			badRequest(c, "q must be at least 3 characters")
			return
		}

		candidates, err := deps.Address.Forward(c.Request.Context(), query, requestLocale(c), c.Query("country"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"candidates": candidates})
	}
}
