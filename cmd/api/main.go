package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/address"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/mail"
	"storefront/internal/payment"
	cartrepo "storefront/internal/repository/cart"
	customerrepo "storefront/internal/repository/customer"
	favrepo "storefront/internal/repository/favorites"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	shipmentrepo "storefront/internal/repository/shipment"
	tokenrepo "storefront/internal/repository/token"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"
	favoritessvc "storefront/internal/service/favorites"
	"storefront/internal/service/fulfillment"
	identitysvc "storefront/internal/service/identity"
	mergesvc "storefront/internal/service/merge"
	productsvc "storefront/internal/service/product"
	"storefront/internal/shipping"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	store, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("connect to redis: %v", err)
	}

	bus := events.NewBus()

	tokenRepo := tokenrepo.NewPostgres(dbpool)
	identityService := identitysvc.New(tokenRepo)

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo, logger)

	userCarts := cartrepo.NewPostgres(dbpool)
	anonCarts := cartrepo.NewDevice(store, cfg.AnonCartTTL)
	cartService := cartsvc.New(userCarts, anonCarts, productRepo, bus, logger)

	userFavorites := favrepo.NewPostgres(dbpool)
	anonFavorites := favrepo.NewDevice(store, cfg.AnonFavoriteTTL)
	favoritesService := favoritessvc.New(userFavorites, anonFavorites, bus, logger)

	mergeCoordinator := mergesvc.New(store, cfg.MergeMarkerTTL, anonCarts, userCarts, anonFavorites, userFavorites, logger)

	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	accountService := customersvc.New(customerRepo, identityService, mergeCoordinator, logger)

	shippingClient := shipping.NewClient(cfg.ShippingAPIBase, cfg.ShippingAPIKey, logger)
	addressValidator := address.NewValidator(cfg.AddressAPIBase, cfg.AddressAPIKey, logger)
	gateway := payment.NewStripe(cfg.StripeKey, cfg.StripeWebhookSecret)
	mailer := mail.NewSendgrid(cfg.SendgridKey, cfg.MailFrom, cfg.StoreName, logger)

	checkoutOrchestrator := checkoutsvc.New(store, cartService, addressValidator, shippingClient, gateway, checkoutsvc.Config{
		Currency:   cfg.Currency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		ShipFrom:   cfg.ShipFrom,
		TTL:        cfg.CheckoutTTL,
	}, logger)

	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	shipmentRepo := shipmentrepo.NewPostgres(dbpool)
	processor := fulfillment.New(store, orderRepo, productRepo, shipmentRepo, shippingClient, mailer, fulfillment.Config{
		StoreName:     cfg.StoreName,
		OperatorEmail: cfg.OperatorEmail,
		TrackingBase:  cfg.TrackingBase,
		ShipFrom:      cfg.ShipFrom,
	}, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Identity:    identityService,
		Accounts:    accountService,
		AccountRepo: customerRepo,
		Products:    productService,
		Carts:       cartService,
		Favorites:   favoritesService,
		Checkout:    checkoutOrchestrator,
		Fulfillment: processor,
		Gateway:     gateway,
		Orders:      orderRepo,
		Shipments:   shipmentRepo,
		Shipping:    shippingClient,
		Address:     addressValidator,
		Bus:         bus,
	}, cfg.CORSOrigins)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
