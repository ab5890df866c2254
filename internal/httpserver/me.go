package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"

	"github.com/gin-gonic/gin"
)

func profileHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		cust, err := deps.Accounts.Profile(c.Request.Context(), id.CustomerID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cust)
	}
}

func updateProfileHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Locale    string `json:"locale"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		id, _ := currentIdentity(c)
		cust, err := deps.Accounts.UpdateProfile(c.Request.Context(), id.CustomerID, req.FirstName, req.LastName, req.Locale)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cust)
	}
}

func setAddressesHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Addresses []domain.Address `json:"addresses"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		id, _ := currentIdentity(c)
		if err := deps.Accounts.SetAddresses(c.Request.Context(), id.CustomerID, req.Addresses); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"addresses": req.Addresses})
	}
}

func myOrdersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		orders, err := deps.Orders.List(c.Request.Context(), orderrepo.ListFilter{CustomerID: id.CustomerID})
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

// myOrderHandler scopes by owner: someone else's order id is a 404, never
// a 403, so ids cannot be probed.
func myOrderHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		order, err := deps.Orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if order.CustomerID == nil || *order.CustomerID != id.CustomerID {
			writeError(c, domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
