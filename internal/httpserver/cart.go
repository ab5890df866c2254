package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type cartResponse struct {
	Items      []domain.CartItem `json:"items"`
	Count      int               `json:"count"`
	TotalCents int64             `json:"totalCents"`
}

func toCartResponse(items []domain.CartItem) cartResponse {
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		Items:      items,
		Count:      domain.CartCount(items),
		TotalCents: domain.CartTotalCents(items),
	}
}

func listCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		items, err := deps.Carts.Items(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCartResponse(items))
	}
}

func addCartItemHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		id, _ := currentIdentity(c)
		item, err := deps.Carts.Add(c.Request.Context(), id, req.ProductID, req.Quantity, requestLocale(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func updateCartItemHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		id, _ := currentIdentity(c)
		if err := deps.Carts.UpdateQuantity(c.Request.Context(), id, c.Param("itemID"), req.Quantity); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeCartItemHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		if err := deps.Carts.Remove(c.Request.Context(), id, c.Param("itemID")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func clearCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		if err := deps.Carts.Clear(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// cartEventsHandler streams cart and favorites change notifications over
// SSE. Payloads carry only the topic; clients refetch, they never patch
// local state from the event.
func cartEventsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		ch, cancel := deps.Bus.Subscribe(id.OwnerID())
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				fmt.Fprintf(w, "event: %s\ndata: {}\n\n", ev.Topic)
				return true
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
