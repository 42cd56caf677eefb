package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smmwallet/internal/catalog"
	"smmwallet/internal/handler"
	"smmwallet/internal/middleware"
	"smmwallet/pkg/cache"
	"smmwallet/pkg/config"
	"smmwallet/pkg/logger"
	"smmwallet/pkg/validator"
)

type routerDeps struct {
	cfg      *config.Config
	log      logger.Logger
	ledger   handler.BalanceReader
	orders   handler.Orders
	admin    handler.Admin
	catalog  handler.Catalog
	listings handler.Listings
	pricer   handler.SellRater
	funding  catalog.Funding
	deps     map[string]handler.Pinger
	redis    *cache.RedisCache
}

func buildRouter(d routerDeps) *mux.Router {
	walletHandler := handler.NewWalletHandler(d.ledger, d.log)
	orderHandler := handler.NewOrderHandler(d.orders, d.log)
	catalogHandler := handler.NewCatalogHandler(d.catalog, d.listings, d.pricer, d.funding, d.log)
	adminHandler := handler.NewAdminHandler(d.admin, validator.New(), d.log)
	systemHandler := handler.NewSystemHandler(d.deps)

	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(d.log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(d.log).Log)

	r.HandleFunc("/", systemHandler.KeepAlive).Methods("GET", "HEAD")
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.HandleFunc("/ready", systemHandler.Ready).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMW := middleware.NewAuthMiddleware(d.cfg.JWT.Secret)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	if d.redis != nil {
		api.Use(middleware.NewRateLimiter(d.redis.Client(), d.cfg.Server.RateLimit, time.Minute).Limit)
	}

	purchase := http.Handler(http.HandlerFunc(orderHandler.PlaceOrder))
	if d.redis != nil {
		purchase = middleware.NewIdempotencyMiddleware(d.redis.Client(), d.cfg.Server.IdempotencyTTL, d.log).Honor(purchase)
	}

	api.HandleFunc("/balance", walletHandler.GetBalance).Methods("GET")
	api.HandleFunc("/balance/entries", walletHandler.GetEntries).Methods("GET")
	api.Handle("/orders", purchase).Methods("POST")
	api.HandleFunc("/orders/{id}/status", orderHandler.OrderStatus).Methods("GET")
	api.HandleFunc("/orders/{id}/refill", orderHandler.Refill).Methods("POST")
	api.HandleFunc("/refills/{id}", orderHandler.RefillStatus).Methods("GET")
	api.HandleFunc("/services", catalogHandler.ListServices).Methods("GET")
	api.HandleFunc("/categories", catalogHandler.ListCategories).Methods("GET")
	api.HandleFunc("/categories/{name}", catalogHandler.GetCategory).Methods("GET")
	api.HandleFunc("/funds/requests", catalogHandler.RequestFunds).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/approve", adminHandler.Approve).Methods("POST")
	admin.HandleFunc("/deduct", adminHandler.Deduct).Methods("POST")
	admin.HandleFunc("/provider-balance", adminHandler.ProviderBalance).Methods("GET")
	admin.HandleFunc("/orders/review", adminHandler.ManualReview).Methods("GET")
	admin.HandleFunc("/orders/{reference}/resolve", adminHandler.Resolve).Methods("POST")

	return r
}
