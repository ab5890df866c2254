package httpserver

import (
	"io"
	"log"
	"net/http"

	"storefront/internal/payment"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 16

// stripeWebhookHandler receives payment events. The signature check comes
// before anything else; a verified but unhandled event type is still
// acknowledged so the gateway stops retrying it.
func stripeWebhookHandler(deps Deps, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}

		event, err := deps.Gateway.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			writeError(c, err)
			return
		}

		switch event.Type {
		case payment.EventCheckoutCompleted:
			if err := deps.Fulfillment.HandleSessionCompleted(c.Request.Context(), event.Session); err != nil {
				logger.Printf("webhook: fulfill session=%s error=%v", event.Session.ID, err)
				// Non-2xx makes the gateway redeliver; fulfillment is
				// idempotent, so the retry is safe.
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "fulfillment failed"})
				return
			}
		case payment.EventCheckoutExpired:
			if err := deps.Fulfillment.HandleSessionExpired(c.Request.Context(), event.Session); err != nil {
				logger.Printf("webhook: expire session=%s error=%v", event.Session.ID, err)
			}
		default:
			logger.Printf("webhook: ignoring event type=%s", event.Type)
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
