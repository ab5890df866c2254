package httpserver

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"

	"github.com/gin-gonic/gin"
)

func adminCreateProductHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Slug         string            `json:"slug"`
			Names        map[string]string `json:"names"`
			Descriptions map[string]string `json:"descriptions"`
			Category     string            `json:"category"`
			PriceCents   int64             `json:"priceCents"`
			Currency     string            `json:"currency"`
			Stock        int               `json:"stock"`
			ImageURL     string            `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		created, err := deps.Products.Create(c.Request.Context(), productrepo.CreateInput{
			Slug:         req.Slug,
			Names:        req.Names,
			Descriptions: req.Descriptions,
			Category:     req.Category,
			PriceCents:   req.PriceCents,
			Currency:     req.Currency,
			Stock:        req.Stock,
			ImageURL:     req.ImageURL,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func adminUpdateProductHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Names        map[string]string `json:"names"`
			Descriptions map[string]string `json:"descriptions"`
			Category     *string           `json:"category"`
			PriceCents   *int64            `json:"priceCents"`
			Stock        *int              `json:"stock"`
			ImageURL     *string           `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		updated, err := deps.Products.Update(c.Request.Context(), c.Param("id"), productrepo.UpdateInput{
			Names:        req.Names,
			Descriptions: req.Descriptions,
			Category:     req.Category,
			PriceCents:   req.PriceCents,
			Stock:        req.Stock,
			ImageURL:     req.ImageURL,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func adminListOrdersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))

		orders, err := deps.Orders.List(c.Request.Context(), orderrepo.ListFilter{
			Status: c.Query("status"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
	}
}

var allowedStatusTransitions = map[string]bool{
	domain.OrderProcessing: true,
	domain.OrderShipped:    true,
	domain.OrderDelivered:  true,
	domain.OrderCancelled:  true,
}

func adminOrderStatusHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || !allowedStatusTransitions[req.Status] {
			badRequest(c, "status must be one of processing, shipped, delivered, cancelled")
			return
		}

		if err := deps.Orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// adminOrderTrackingHandler pulls live tracking from the carrier via the
// shipment recorded at fulfillment time.
func adminOrderTrackingHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		shipment, err := deps.Shipments.GetByOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}

		tracking, err := deps.Shipping.Track(c.Request.Context(), shipment.Carrier, shipment.TrackingNumber)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shipment": shipment, "tracking": tracking})
	}
}

func adminListCustomersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		offset, _ := strconv.Atoi(c.Query("offset"))

		customers, err := deps.AccountRepo.List(c.Request.Context(), limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		if customers == nil {
			customers = []domain.Customer{}
		}
		c.JSON(http.StatusOK, gin.H{"customers": customers, "count": len(customers)})
	}
}

func adminDashboardHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := deps.Orders.Summarize(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
