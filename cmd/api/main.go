package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/config"
	"github.com/fairyhunter13/storefront-checkout/internal/handler"
	"github.com/fairyhunter13/storefront-checkout/internal/middleware"
	"github.com/fairyhunter13/storefront-checkout/internal/repository"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/internal/validator"
	"github.com/fairyhunter13/storefront-checkout/internal/worker"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	// Repositories
	outboxRepo := repository.NewOutboxRepository(pool)
	repos := service.Repositories{
		Products: repository.NewProductRepository(pool),
		Carts:    repository.NewCartRepository(pool),
		Coupons:  repository.NewCouponRepository(pool),
		Orders:   repository.NewOrderRepository(pool),
		Outbox:   outboxRepo,
	}

	// Services
	lockTimeout := cfg.Checkout.LockTimeout()
	productService := service.NewProductService(pool, repos.Products).WithLockTimeout(lockTimeout)
	cartService := service.NewCartService(pool, repos.Carts, repos.Products).WithLockTimeout(lockTimeout)
	couponService := service.NewCouponService(pool, repos.Coupons).WithLockTimeout(lockTimeout)
	checkoutService := service.NewCheckoutService(pool, repos, lockTimeout)
	orderService := service.NewOrderService(pool, repos.Orders, repos.Outbox).WithLockTimeout(lockTimeout)
	categoryService := service.NewCategoryService(repository.NewCategoryRepository(pool))
	reviewService := service.NewReviewService(repository.NewReviewRepository(pool), repos.Products, repos.Orders)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics(registry)

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Checkout",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	validate := validator.New()
	handler.Register(app, handler.Handlers{
		Health:   handler.NewHealthHandler(pool),
		Product:  handler.NewProductHandler(productService, validate),
		Category: handler.NewCategoryHandler(categoryService, validate),
		Review:   handler.NewReviewHandler(reviewService, validate),
		Cart:     handler.NewCartHandler(cartService, validate),
		Order:    handler.NewOrderHandler(checkoutService, orderService, validate),
		Coupon:   handler.NewCouponHandler(couponService, validate),
	}, middleware.Auth(cfg.Auth))

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	sweeper := worker.NewCouponSweeper(couponService, cfg.Coupon.SweepInterval)
	workers.Add(1)
	go func() {
		defer workers.Done()
		sweeper.Run(workerCtx)
	}()

	var kafkaWriter worker.MessageWriter
	if cfg.Kafka.Enabled() {
		kafkaWriter = worker.NewKafkaWriter(cfg.Kafka.BrokerList(), cfg.Kafka.Topic)
		relay := worker.NewOutboxRelay(outboxRepo, kafkaWriter, cfg.Kafka.RelayInterval, cfg.Kafka.BatchSize)
		workers.Add(1)
		go func() {
			defer workers.Done()
			relay.Run(workerCtx)
		}()
	} else {
		log.Info().Msg("KAFKA_BROKERS not set, outbox relay disabled")
	}

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Stop workers before the pool they read from
	log.Info().Msg("stopping background workers...")
	stopWorkers()
	workers.Wait()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			log.Error().Err(err).Msg("error closing kafka writer")
		}
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
