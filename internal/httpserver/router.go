package httpserver

import (
	"context"
	"log"

	"storefront/internal/address"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/payment"
	orderrepo "storefront/internal/repository/order"
	shipmentrepo "storefront/internal/repository/shipment"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"
	favoritessvc "storefront/internal/service/favorites"
	"storefront/internal/service/fulfillment"
	productsvc "storefront/internal/service/product"
	"storefront/internal/shipping"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type identityResolver interface {
	Resolve(ctx context.Context, bearer string) (domain.Identity, error)
	IssueDevice(ctx context.Context) (token, deviceID string, err error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type customerGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

type customerLister interface {
	customerGetter
	List(ctx context.Context, limit, offset int) ([]domain.Customer, error)
}

// Deps bundles everything the handlers call. The repositories appearing
// here directly back admin reads; writes always go through a service.
type Deps struct {
	Identity    identityResolver
	Accounts    *customersvc.Service
	AccountRepo customerLister
	Products    *productsvc.Service
	Carts       *cartsvc.Service
	Favorites   *favoritessvc.Service
	Checkout    *checkoutsvc.Orchestrator
	Fulfillment *fulfillment.Processor
	Gateway     payment.Gateway
	Orders      orderrepo.Repository
	Shipments   shipmentrepo.Repository
	Shipping    shipping.Client
	Address     address.Validator
	Bus         *events.Bus
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		corsCfg.AllowOrigins = corsOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.POST("/webhooks/stripe", stripeWebhookHandler(deps, logger))

	api := router.Group("/api")
	api.Use(identityMiddleware(deps.Identity))

	api.POST("/devices", issueDeviceHandler(deps))
	api.POST("/auth/signup", signupHandler(deps))
	api.POST("/auth/login", loginHandler(deps))
	api.POST("/auth/refresh", refreshHandler(deps))

	api.GET("/products", listProductsHandler(deps))
	api.GET("/products/:id", getProductHandler(deps))
	api.GET("/address/suggest", suggestAddressHandler(deps))

	owned := api.Group("")
	owned.Use(requireIdentity())
	{
		owned.GET("/cart", listCartHandler(deps))
		owned.POST("/cart/items", addCartItemHandler(deps))
		owned.PATCH("/cart/items/:itemID", updateCartItemHandler(deps))
		owned.DELETE("/cart/items/:itemID", removeCartItemHandler(deps))
		owned.DELETE("/cart", clearCartHandler(deps))
		owned.GET("/cart/events", cartEventsHandler(deps))

		owned.GET("/favorites", listFavoritesHandler(deps))
		owned.DELETE("/favorites", clearFavoritesHandler(deps))
		owned.PUT("/favorites/:productID", addFavoriteHandler(deps))
		owned.DELETE("/favorites/:productID", removeFavoriteHandler(deps))

		owned.POST("/checkout", startCheckoutHandler(deps))
		owned.GET("/checkout/:id", getCheckoutHandler(deps))
		owned.PUT("/checkout/:id/address", checkoutAddressHandler(deps))
		owned.POST("/checkout/:id/rates", checkoutRatesHandler(deps))
		owned.PUT("/checkout/:id/rate", checkoutSelectRateHandler(deps))
		owned.POST("/checkout/:id/submit", checkoutSubmitHandler(deps))
	}

	me := api.Group("/me")
	me.Use(requireCustomer())
	{
		me.GET("", profileHandler(deps))
		me.PATCH("", updateProfileHandler(deps))
		me.PUT("/addresses", setAddressesHandler(deps))
		me.GET("/orders", myOrdersHandler(deps))
		me.GET("/orders/:id", myOrderHandler(deps))
		me.POST("/logout", logoutHandler(deps))
	}

	admin := api.Group("/admin")
	admin.Use(requireCustomer(), requireAdmin(deps.AccountRepo))
	{
		admin.POST("/products", adminCreateProductHandler(deps))
		admin.PATCH("/products/:id", adminUpdateProductHandler(deps))
		admin.GET("/orders", adminListOrdersHandler(deps))
		admin.PATCH("/orders/:id/status", adminOrderStatusHandler(deps))
		admin.GET("/orders/:id/tracking", adminOrderTrackingHandler(deps))
		admin.GET("/customers", adminListCustomersHandler(deps))
		admin.GET("/dashboard", adminDashboardHandler(deps))
	}

	return router
}
