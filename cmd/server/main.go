package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/application/settlement"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/infrastructure/cache"
	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/infrastructure/persistence"
	"github.com/liquorledger/backend/internal/infrastructure/telemetry"
	"github.com/liquorledger/backend/internal/interfaces/http/handler"
	"github.com/liquorledger/backend/internal/interfaces/http/middleware"
	"github.com/liquorledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Liquor Ledger API
//	@version		1.0
//	@description	Inventory valuation and day-end settlement for a liquor store

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	// Mirror logs to the collector when enabled
	lp, err := telemetry.NewLoggerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := lp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = lp.Tee(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting liquor ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Tracing comes first so the GORM plugin and gin middleware see the global provider
	tp, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, err := telemetry.NewMeterProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Initialize database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, db.Driver, log); err != nil {
			log.Warn("Database tracing unavailable", zap.Error(err))
		}
	}

	// SQLite has no migrate CLI path, so its schema is always created in-process
	if cfg.Database.Driver == config.DriverSQLite || cfg.Database.AutoMigrate {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
		log.Info("Schema migrated")
	}

	// Application services
	scope := persistence.NewGormTransactionScope(db.DB)
	reads := persistence.NewRepositories(db.DB)
	fallbacks := settlement.FallbacksFromConfig(cfg.Settlement)
	reconciler := settlement.NewReconciliationService(scope)

	itemService := settlement.NewItemQueryService(reads, fallbacks)
	purchaseService := settlement.NewPurchaseSettlementService(scope, reads, reconciler)
	salesService := settlement.NewSalesSettlementService(scope, reads, fallbacks)

	metrics, err := telemetry.NewSettlementMetrics(mp.Meter(), itemService.StockPosition, log)
	if err != nil {
		log.Fatal("Failed to register settlement metrics", zap.Error(err))
	}
	defer func() { _ = metrics.Close() }()
	purchaseService.SetRecorder(metrics)
	salesService.SetRecorder(metrics)
	reconciler.SetRecorder(metrics)

	// Idempotency keys for create endpoints
	var idemStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idemStore, err = cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(true),
		).CreateStore()
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idemStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
	}

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.Enabled(),
		}),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.Secure(),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
		middleware.BodyLimit(middleware.DefaultMaxBodyBytes),
	)

	router.RegisterAPI(engine, router.Handlers{
		Items:     handler.NewItemHandler(itemService, reconciler),
		Purchases: handler.NewPurchaseHandler(purchaseService),
		DayEnd:    handler.NewDayEndReportHandler(salesService),
		Health:    handler.NewHealthHandler(db),
	}, router.IdempotencyOptions{Store: idemStore, TTL: cfg.Idempotency.TTL})
	router.RegisterDocs(engine, middleware.SwaggerConfig{
		Enabled:    cfg.Swagger.Enabled,
		AllowedIPs: cfg.Swagger.AllowedIPs,
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
