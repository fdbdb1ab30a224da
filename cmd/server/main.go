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

	"github.com/proflow/billing-sync/internal/application/sync"
	"github.com/proflow/billing-sync/internal/domain/shared"
	"github.com/proflow/billing-sync/internal/infrastructure/billing"
	"github.com/proflow/billing-sync/internal/infrastructure/cache"
	"github.com/proflow/billing-sync/internal/infrastructure/config"
	"github.com/proflow/billing-sync/internal/infrastructure/logger"
	"github.com/proflow/billing-sync/internal/infrastructure/persistence"
	"github.com/proflow/billing-sync/internal/interfaces/http/handler"
	"github.com/proflow/billing-sync/internal/interfaces/http/middleware"
	"github.com/proflow/billing-sync/internal/interfaces/http/router"
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

	log.Info("Starting billing sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	professionalRepo := persistence.NewGormProfessionalRepository(db.DB)

	// Stripe adapter
	stripeConfig := &billing.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		IsTestMode:    cfg.Stripe.IsTestMode,
	}
	stripeAdapter, err := billing.NewStripeAdapter(stripeConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
	}

	// Webhook event deduplication store. Redis when configured, otherwise a
	// per-instance in-memory store; disabled entirely when idempotency is off.
	var idempotencyStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		if cfg.Redis.Enabled {
			redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			idempotencyStore = redisStore
			log.Info("Using Redis idempotency store",
				zap.String("host", cfg.Redis.Host),
				zap.Int("port", cfg.Redis.Port))
		} else {
			idempotencyStore = cache.NewInMemoryIdempotencyStore()
			log.Info("Using in-memory idempotency store")
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
	}

	// Application services
	databaseEventService := sync.NewDatabaseEventService(sync.DatabaseEventServiceConfig{
		ProfessionalRepo: professionalRepo,
		BillingClient:    stripeAdapter,
		Logger:           log,
	})
	stripeWebhookService := sync.NewStripeWebhookService(sync.StripeWebhookServiceConfig{
		Config:           stripeConfig,
		ProfessionalRepo: professionalRepo,
		IdempotencyStore: idempotencyStore,
		IdempotencyCfg:   shared.IdempotencyConfig{TTL: cfg.Idempotency.TTL},
		Logger:           log,
	})

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, order matters:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Routes
	router.NewRouter(engine).
		Register(handler.NewHealthHandler(db)).
		Register(handler.NewDatabaseWebhookHandler(databaseEventService)).
		Register(handler.NewStripeWebhookHandler(stripeWebhookService)).
		Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
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
