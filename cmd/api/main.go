package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"smmwallet/internal/admin"
	"smmwallet/internal/auth"
	"smmwallet/internal/catalog"
	"smmwallet/internal/handler"
	"smmwallet/internal/ledger"
	"smmwallet/internal/order"
	"smmwallet/internal/pricing"
	"smmwallet/internal/provider"
	"smmwallet/internal/repository/postgres"
	"smmwallet/pkg/cache"
	"smmwallet/pkg/config"
	"smmwallet/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel("smm-wallet", logger.ParseLevel(cfg.Log.Level))

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting SMM wallet service", map[string]interface{}{
		"port":           cfg.Server.Port,
		"ledger_backend": cfg.Ledger.Backend,
		"redis":          cfg.Redis.Enabled(),
	})

	deps := map[string]handler.Pinger{}

	var (
		store ledger.Store
		repo  order.Repository
	)
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatal("Failed to connect to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		log.Info("Database connected", nil)

		wallets := postgres.NewWalletRepository(db)
		store = wallets
		repo = postgres.NewOrderRepository(db)
		deps["database"] = wallets
	default:
		log.Warn("Using in-memory ledger; balances are lost on restart", nil)
		store = ledger.NewMemoryStore()
		repo = order.NewMemoryRepository()
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer rc.Close()
		redisCache = rc
		deps["redis"] = rc
		log.Info("Redis connected", nil)
	}

	ledgerSvc := ledger.NewService(store, log)
	providerClient := provider.NewClient(provider.Config{
		URL:             cfg.Provider.URL,
		APIKey:          cfg.Provider.APIKey,
		Timeout:         cfg.Provider.Timeout,
		MaxRetries:      cfg.Provider.MaxRetries,
		RetryBackoff:    cfg.Provider.RetryBackoff,
		MaxRetryBackoff: cfg.Provider.MaxRetryBackoff,
	}, log)

	var shared catalog.SharedCache
	if redisCache != nil {
		shared = redisCache
	}
	catalogSvc := catalog.NewService(providerClient, shared, cfg.Catalog.CacheTTL, log)
	engine := pricing.NewEngine(cfg.Pricing.MarkupPercent)

	orchestrator := order.NewOrchestrator(ledgerSvc, catalogSvc, engine, providerClient, repo, order.BoundsPolicy{
		MinQuantity: cfg.Order.MinQuantity,
		MaxQuantity: cfg.Order.MaxQuantity,
		RequireURL:  cfg.Order.RequireLinkURL,
	}, log)

	admins := auth.NewAdminSet(cfg.Admin.IDs...)
	if admins.Len() == 0 {
		log.Warn("No ADMIN_IDS configured; admin operations are disabled", nil)
	}
	adminSvc := admin.NewService(ledgerSvc, admins, providerClient, orchestrator, log)

	r := buildRouter(routerDeps{
		cfg:      cfg,
		log:      log,
		ledger:   ledgerSvc,
		orders:   orchestrator,
		admin:    adminSvc,
		catalog:  catalogSvc,
		listings: catalog.NewListings(cfg.Catalog.Dir),
		pricer:   engine,
		funding: catalog.Funding{
			Method:   cfg.Catalog.FundingMethod,
			Handle:   cfg.Catalog.FundingHandle,
			Currency: cfg.Catalog.FundingCurrency,
		},
		deps:  deps,
		redis: redisCache,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SMM wallet service started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down SMM wallet service...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("SMM wallet service forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}
	orchestrator.Close()

	log.Info("SMM wallet service stopped gracefully", nil)
}
