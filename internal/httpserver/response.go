package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"
	identitysvc "storefront/internal/service/identity"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto the wire taxonomy. Handlers return
// whatever the service gave them; this is the single place status codes
// are decided.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"message": verr.Error(),
			"fields":  verr.Fields,
		})
		return
	}

	var serr *domain.SignatureError
	if errors.As(err, &serr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature", "message": "webhook signature verification failed"})
		return
	}

	var qerr *domain.RateQuoteError
	if errors.As(err, &qerr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "rate_quote_failed", "message": "could not fetch shipping rates, try again"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "resource not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already_exists", "message": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "not allowed"})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{"error": "empty_cart", "message": "cart is empty"})
	case errors.Is(err, domain.ErrNoRateSelected):
		c.JSON(http.StatusConflict, gin.H{"error": "no_rate_selected", "message": "select a shipping rate first"})
	case errors.Is(err, identitysvc.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
	case errors.Is(err, customersvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "invalid credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": message})
}
