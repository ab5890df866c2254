package httpserver

import (
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

func listFavoritesHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		items, err := deps.Favorites.List(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		if items == nil {
			items = []domain.FavoriteItem{}
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
	}
}

// addFavoriteHandler is a PUT: favoriting twice is not an error, the
// response just says nothing new happened.
func addFavoriteHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		created, err := deps.Favorites.Add(c.Request.Context(), id, c.Param("productID"))
		if err != nil {
			writeError(c, err)
			return
		}

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"productId": c.Param("productID"), "alreadyExists": !created})
	}
}

func clearFavoritesHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		if err := deps.Favorites.Clear(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeFavoriteHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		if err := deps.Favorites.Remove(c.Request.Context(), id, c.Param("productID")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
