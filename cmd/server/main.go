package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/dbcb2b/backend/internal/application/catalog"
	importapp "github.com/dbcb2b/backend/internal/application/import"
	tradeapp "github.com/dbcb2b/backend/internal/application/trade"
	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
	"github.com/dbcb2b/backend/internal/infrastructure/auth"
	"github.com/dbcb2b/backend/internal/infrastructure/cache"
	"github.com/dbcb2b/backend/internal/infrastructure/config"
	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"github.com/dbcb2b/backend/internal/infrastructure/migration"
	"github.com/dbcb2b/backend/internal/infrastructure/persistence"
	"github.com/dbcb2b/backend/internal/infrastructure/storage"
	infrastrategy "github.com/dbcb2b/backend/internal/infrastructure/strategy"
	"github.com/dbcb2b/backend/internal/infrastructure/telemetry"
	"github.com/dbcb2b/backend/internal/interfaces/http/handler"
	"github.com/dbcb2b/backend/internal/interfaces/http/middleware"
	"github.com/dbcb2b/backend/internal/interfaces/http/router"
	"github.com/dbcb2b/backend/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting order backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.ConfigFrom(cfg.Telemetry, cfg.App.Env, version), log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log).RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}

	sqlDB, err := db.SQL()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	migrator, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	unitRepo := persistence.NewGormSerializedUnitRepository(db.DB)

	// Strategies
	registry, err := infrastrategy.NewRegistryWithDefaults()
	if err != nil {
		log.Fatal("Failed to register strategies", zap.Error(err))
	}
	pricing := registry.GetPricingStrategyOrDefault(registry.GetDefault(strategy.StrategyTypePricing))
	shipping := registry.GetShippingStrategyOrDefault(registry.GetDefault(strategy.StrategyTypeShipping))

	// Upload archive
	var archive importapp.Archiver = storage.NewMemoryArchive()
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3UploadArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize upload archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(context.Background()); err != nil {
			log.Warn("Upload archive bucket check failed", zap.Error(err))
		}
		archive = s3Archive
		log.Info("Archiving uploads to S3", zap.String("bucket", s3Archive.GetBucket()))
	}

	// Services
	productOpts := []catalogapp.ProductServiceOption{}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).AddCheck("database", db)
	if cfg.Catalog.CacheEnabled {
		productCache, closeCache, err := cache.NewProductCacheFactory(cfg.Redis, cfg.Catalog.CacheTTL, cache.WithLogger(log)).CreateCache()
		if err != nil {
			log.Fatal("Failed to initialize product cache", zap.Error(err))
		}
		defer func() {
			if err := closeCache(); err != nil {
				log.Error("Error closing product cache", zap.Error(err))
			}
		}()
		if p, ok := productCache.(cache.Pinger); ok {
			systemHandler.AddCheck("redis", p)
		}
		productOpts = append(productOpts, catalogapp.WithProductCache(productCache))
	}
	productService := catalogapp.NewProductService(productRepo, productOpts...)

	refreshService := importapp.NewCatalogRefreshService(productRepo, pricing,
		importapp.WithCatalogArchiver(archive),
		importapp.WithCatalogCacheInvalidator(productService),
		importapp.WithDeactivateMissing(cfg.Catalog.DeactivateMissingOnImport),
	)
	classifier := importapp.NewClassifier(productRepo, productService.Resolver(), pricing)
	orderImportService := importapp.NewOrderImportService(classifier, productRepo, orderRepo,
		importapp.WithOrderArchiver(archive),
		importapp.WithOrderCacheInvalidator(productService),
		importapp.WithDraftLabels(cfg.Order.ImportCustomerRef, cfg.Order.VATLabel),
	)
	orderService := tradeapp.NewOrderService(orderRepo, productRepo, productRepo,
		tradeapp.WithShippingStrategy(shipping),
		tradeapp.WithStockInvalidator(productService),
		tradeapp.WithOrderPolicy(tradeapp.OrderPolicy{
			RestoreStockOnCancel: cfg.Order.RestoreStockOnCancel,
			AutoShippingCost:     cfg.Order.AutoShippingCost,
			VATLabel:             cfg.Order.VATLabel,
		}),
	)
	unitService := tradeapp.NewUnitService(orderRepo, unitRepo, tradeapp.WithUnitArchiver(archive))
	exportService := tradeapp.NewExportService(orderRepo, unitRepo, productRepo)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var uploads *middleware.RateLimiter
	if cfg.HTTP.UploadRateLimit > 0 {
		uploads = middleware.NewRateLimiter(cfg.HTTP.UploadRateLimit, cfg.HTTP.UploadRateWindow)
		log.Info("Upload rate limiting enabled",
			zap.Int("uploads", cfg.HTTP.UploadRateLimit),
			zap.Duration("window", cfg.HTTP.UploadRateWindow),
		)
	}

	router.SetupAPI(engine, middleware.JWTMiddlewareConfig{
		JWTService: auth.NewJWTService(cfg.JWT),
		SkipPaths:  []string{"/api/v1/system/ping"},
		Logger:     log,
	}, router.Handlers{
		Catalog:     handler.NewCatalogHandler(productService, refreshService, cfg.HTTP.MaxBodySize),
		Order:       handler.NewOrderHandler(orderService),
		OrderImport: handler.NewOrderImportHandler(orderImportService, cfg.HTTP.MaxBodySize),
		Unit:        handler.NewUnitHandler(unitService, exportService, cfg.HTTP.MaxBodySize),
		System:      systemHandler,
	}, uploads)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

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
