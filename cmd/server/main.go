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
	"github.com/joho/godotenv"
	returnsapp "github.com/retailpos/backoffice/internal/application/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/auth"
	"github.com/retailpos/backoffice/internal/infrastructure/cache"
	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"github.com/retailpos/backoffice/internal/infrastructure/event"
	"github.com/retailpos/backoffice/internal/infrastructure/inventory"
	"github.com/retailpos/backoffice/internal/infrastructure/logger"
	"github.com/retailpos/backoffice/internal/infrastructure/persistence"
	"github.com/retailpos/backoffice/internal/infrastructure/printing"
	"github.com/retailpos/backoffice/internal/infrastructure/salesdb"
	"github.com/retailpos/backoffice/internal/infrastructure/storage"
	"github.com/retailpos/backoffice/internal/infrastructure/telemetry"
	"github.com/retailpos/backoffice/internal/interfaces/http/handler"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
	"github.com/retailpos/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Back-office Returns API
//	@version		1.0
//	@description	Product returns and refunds for point-of-sale stores

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log bridge, attached to the main logger as an extra core
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err := logger.New(logCfg, logProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting returns service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled {
		tracerProvider.EnableSpanProfiles()
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Returns database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.OpenDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backs the restock stream, token revocation, rate limiting and
	// handler idempotency
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Event, redisClient,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Read-only access to the point-of-sale sales database
	salesPool, err := salesdb.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to sales database", zap.Error(err))
	}
	sales := salesdb.NewSnapshotProvider(salesPool, cfg.SalesDatabase.QueryTimeout)

	restocker := inventory.NewStreamRestocker(redisClient, idempotencyStore, inventory.StreamConfig{
		Stream:   cfg.Returns.RestockStream,
		MaxLen:   cfg.Returns.RestockStreamMax,
		DedupTTL: cfg.Returns.RestockDedupTTL,
	}, log)
	refunds := persistence.NewGormRefundLedger(db.DB)
	returnRepo := persistence.NewGormReturnRepository(db.DB,
		persistence.WithNumberPrefix(cfg.Returns.NumberPrefix),
		persistence.WithCreateRetries(cfg.Returns.CreateRetryLimit),
	)

	returnService := returnsapp.NewReturnService(returnRepo, sales, restocker, refunds, log, returnsapp.ServiceConfig{
		ReceiptURLTTL: cfg.Storage.PresignTTL,
	})
	returnMetrics, err := telemetry.NewReturnMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create return metrics", zap.Error(err))
	}
	returnService.SetMetrics(returnMetrics)

	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch())
	handlers := []event.NamedHandler{
		{Name: "return-metrics", Handler: returnsapp.NewMetricsEventHandler(returnMetrics)},
	}

	if cfg.Storage.Enabled {
		receiptStore, err := storage.NewS3ReceiptStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create receipt store", zap.Error(err))
		}
		if err := receiptStore.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare receipt bucket", zap.Error(err))
		}
		templates, err := printing.NewTemplateEngine(cfg.Storage.ReceiptLocale, cfg.Storage.ReceiptCurrency)
		if err != nil {
			log.Fatal("Failed to create receipt template engine", zap.Error(err))
		}
		renderer, err := printing.NewReceiptRenderer(templates)
		if err != nil {
			log.Fatal("Failed to create receipt renderer", zap.Error(err))
		}

		handlers = append(handlers, event.NamedHandler{
			Name:    "receipt-archive",
			Handler: returnsapp.NewReceiptArchiveHandler(returnRepo, renderer, receiptStore, log),
		})
		returnService.SetReceiptStore(receiptStore)
		log.Info("Receipt archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}
	dedup := event.SubscribeAll(eventBus, idempotencyStore, shared.IdempotencyConfig{
		Enabled: cfg.Event.IdempotencyEnabled,
		TTL:     cfg.Event.IdempotencyTTL,
	}, log, handlers...)
	returnService.SetEventPublisher(eventBus)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	revocations := auth.NewRedisRevocationList(redisClient, auth.DefaultRevocationPrefix)
	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(redisClient, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		logger.GinMiddleware(log),
		middleware.Secure(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
		httpMetrics,
	)

	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": db,
		"redis": handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
		"sales_db": salesPool,
	})
	engine.GET("/health", health.Check)

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Revocations = revocations
	jwtCfg.Logger = log

	r := router.NewRouter(engine, router.WithMiddleware(
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.Profiling(cfg.Telemetry.ProfilingEnabled),
		middleware.RateLimit(limiter, log),
	))

	returnHandler := handler.NewReturnHandler(returnService)
	r.Register(router.ReturnRoutes(returnHandler, middleware.PermissionConfig{Logger: log})).
		Register(router.SaleRoutes(returnHandler))
	r.Setup()

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	log.Info("Event handler dedup totals", zap.Any("stats", dedup.Stats()))
	if err := idempotencyStore.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	salesPool.Close()
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing traces", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
