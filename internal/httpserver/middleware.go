package httpserver

import (
	"net/http"
	"strings"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// identityMiddleware resolves the bearer token into an Identity and stores
// it on the gin context. Requests without a token pass through anonymous
// routes untouched; requireIdentity decides per route group.
func identityMiddleware(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "malformed authorization header"})
			c.Abort()
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// requireIdentity gates routes that need at least a device token. The
// anonymous and authenticated variants of cart and favorites run through
// the same handlers; the identity decides the backing store.
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(identityKey); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "device or access token required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func requireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := currentIdentity(c)
		if !ok || !id.IsCustomer() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "login required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAdmin loads the account and checks the admin flag. It runs after
// requireCustomer, so the identity is always a customer here.
func requireAdmin(accounts customerGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		cust, err := accounts.GetByID(c.Request.Context(), id.CustomerID)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if !cust.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
