package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercedash/backend/internal/application/sync"
	"github.com/commercedash/backend/internal/domain/commerce"
	"github.com/commercedash/backend/internal/infrastructure/cache"
	"github.com/commercedash/backend/internal/infrastructure/config"
	"github.com/commercedash/backend/internal/infrastructure/ecommerce"
	"github.com/commercedash/backend/internal/infrastructure/logger"
	"github.com/commercedash/backend/internal/infrastructure/persistence"
	"github.com/commercedash/backend/internal/infrastructure/scheduler"
	"github.com/commercedash/backend/internal/interfaces/http/handler"
	"github.com/commercedash/backend/internal/interfaces/http/middleware"
	"github.com/commercedash/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CommerceDash backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Record store shared by every platform
	store := persistence.NewGormRecordStore(db.DB, cfg.Sync.UpsertWorkers, log)

	// Platform adapters. eBay first, then the REST stores in config order.
	platforms := buildPlatforms(cfg, log)
	if len(platforms) == 0 {
		log.Warn("No commerce platforms configured, sync runs will be empty")
	}

	// Run lock: Redis when configured, otherwise in-process
	var runLock cache.RunLock
	if cfg.Redis.Enabled() {
		redisLock, err := cache.NewRedisRunLock(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		runLock = redisLock
		log.Info("Redis run lock enabled")
	} else {
		runLock = cache.NewLocalRunLock()
		log.Info("Using in-process run lock")
	}

	syncService := sync.NewService(platforms, store, runLock, sync.Config{
		InitialLookbackDays: cfg.Sync.InitialLookbackDays,
	}, log)

	// Background daily sync trigger
	if cfg.Scheduler.Enabled {
		syncScheduler := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
			Interval:   cfg.Scheduler.Interval,
			RunTimeout: cfg.Scheduler.RunTimeout,
		}, syncService, log)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started", zap.Duration("interval", cfg.Scheduler.Interval))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	systemHandler := handler.NewSystemHandler(db)

	r := router.NewRouter(engine)
	r.Register(systemHandler)
	r.Register(handler.NewSyncHandler(syncService))
	r.Setup()

	// Unversioned liveness probe for load balancers
	engine.GET("/healthz", systemHandler.GetHealth)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildPlatforms constructs one adapter per configured platform. A platform
// with broken settings is logged and skipped so the rest still sync.
func buildPlatforms(cfg *config.Config, log *zap.Logger) []commerce.Platform {
	platforms := make([]commerce.Platform, 0, len(cfg.Stores)+1)

	if cfg.Ebay.AuthToken != "" || cfg.Ebay.RefreshToken != "" || cfg.Ebay.AppID != "" {
		ebayCfg := ecommerce.NewEbayConfig(cfg.Ebay.AppID, cfg.Ebay.CertID)
		ebayCfg.AuthToken = cfg.Ebay.AuthToken
		ebayCfg.RefreshToken = cfg.Ebay.RefreshToken
		if cfg.Ebay.APIURL != "" {
			ebayCfg.APIURL = cfg.Ebay.APIURL
		}
		if cfg.Ebay.TokenURL != "" {
			ebayCfg.TokenURL = cfg.Ebay.TokenURL
		}
		if cfg.Ebay.SiteID != "" {
			ebayCfg.SiteID = cfg.Ebay.SiteID
		}
		if cfg.Ebay.MaxLookbackDays > 0 {
			ebayCfg.MaxLookbackDays = cfg.Ebay.MaxLookbackDays
		}
		applyEbaySyncSettings(ebayCfg, &cfg.Sync)

		adapter, err := ecommerce.NewEbayAdapter(ebayCfg, nil, log)
		if err != nil {
			log.Error("Skipping eBay platform", zap.Error(err))
		} else {
			platforms = append(platforms, adapter)
		}
	}

	for _, storeCfg := range cfg.Stores {
		shopCfg := ecommerce.NewShopifyConfig(storeCfg.Name, storeCfg.Domain, storeCfg.AccessToken)
		if storeCfg.APIVersion != "" {
			shopCfg.APIVersion = storeCfg.APIVersion
		}
		applyShopifySyncSettings(shopCfg, &cfg.Sync)

		adapter, err := ecommerce.NewShopifyAdapter(shopCfg, log)
		if err != nil {
			log.Error("Skipping store", zap.String("store", storeCfg.Name), zap.Error(err))
			continue
		}
		platforms = append(platforms, adapter)
	}

	return platforms
}

func applyEbaySyncSettings(cfg *ecommerce.EbayConfig, sc *config.SyncConfig) {
	if sc.PageDelay > 0 {
		cfg.PageDelay = sc.PageDelay
	}
	if sc.MaxPagesIncremental > 0 {
		cfg.MaxPagesIncremental = sc.MaxPagesIncremental
	}
	if sc.MaxPagesHistorical > 0 {
		cfg.MaxPagesHistorical = sc.MaxPagesHistorical
	}
	if sc.RequestTimeout > 0 {
		cfg.TimeoutSeconds = int(sc.RequestTimeout / time.Second)
	}
}

func applyShopifySyncSettings(cfg *ecommerce.ShopifyConfig, sc *config.SyncConfig) {
	if sc.PageDelay > 0 {
		cfg.PageDelay = sc.PageDelay
	}
	if sc.MaxPagesIncremental > 0 {
		cfg.MaxPagesIncremental = sc.MaxPagesIncremental
	}
	if sc.MaxPagesHistorical > 0 {
		cfg.MaxPagesHistorical = sc.MaxPagesHistorical
	}
	if sc.RequestTimeout > 0 {
		cfg.TimeoutSeconds = int(sc.RequestTimeout / time.Second)
	}
}
