// Package app wires the cart service's dependencies and runs it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nhallard/storefront-cart/pkg/database"
	"github.com/nhallard/storefront-cart/pkg/health"
	"github.com/nhallard/storefront-cart/pkg/httpclient"
	pkgkafka "github.com/nhallard/storefront-cart/pkg/kafka"
	"github.com/nhallard/storefront-cart/pkg/tracing"

	"github.com/nhallard/storefront-cart/internal/catalog"
	"github.com/nhallard/storefront-cart/internal/catalog/httpapi"
	catalogpg "github.com/nhallard/storefront-cart/internal/catalog/postgres"
	"github.com/nhallard/storefront-cart/internal/config"
	"github.com/nhallard/storefront-cart/internal/event"
	handler "github.com/nhallard/storefront-cart/internal/handler/http"
	redisrepo "github.com/nhallard/storefront-cart/internal/repository/redis"
	"github.com/nhallard/storefront-cart/internal/service"
)

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	pgPool          *pgxpool.Pool
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	app := &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		tracingShutdown: tracingShutdown,
	}

	products, err := app.buildCatalog(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	publisher := app.buildPublisher(healthHandler)

	cartTTL := time.Duration(cfg.CartTTLHours) * time.Hour
	repo := redisrepo.NewCartRepository(rdb, cartTTL)
	cartService := service.NewCartService(repo, products, publisher, logger)
	cartHandler := handler.NewCartHandler(cartService, logger)

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		TracingEnabled: cfg.TracingEnabled,
	}, cartHandler, healthHandler, logger)

	app.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return app, nil
}

// buildCatalog selects the product lookup adapter: the catalog service's HTTP
// API behind a circuit breaker, or a direct read-only connection to the
// catalog database.
func (a *App) buildCatalog(ctx context.Context, healthHandler *health.Handler) (catalog.ProductLookup, error) {
	switch a.cfg.CatalogMode {
	case config.CatalogModePostgres:
		pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
			Host:     a.cfg.PostgresHost,
			Port:     a.cfg.PostgresPort,
			User:     a.cfg.PostgresUser,
			Password: a.cfg.PostgresPassword,
			DBName:   a.cfg.PostgresDB,
			SSLMode:  a.cfg.PostgresSSLMode,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pgPool = pool
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		a.logger.Info("catalog adapter initialized", slog.String("mode", "postgres"))
		return catalogpg.NewProductRepository(pool), nil

	default:
		client := httpclient.New(httpclient.DefaultConfig())
		cb := httpclient.NewCircuitBreakerClient(client,
			httpclient.DefaultCircuitBreakerConfig("catalog"), a.logger)
		a.logger.Info("catalog adapter initialized",
			slog.String("mode", "http"),
			slog.String("url", a.cfg.CatalogURL),
		)
		return httpapi.NewClient(cb, a.cfg.CatalogURL), nil
	}
}

// buildPublisher wires Kafka event publishing when brokers are configured.
func (a *App) buildPublisher(healthHandler *health.Handler) event.Publisher {
	if len(a.cfg.KafkaBrokers) == 0 {
		a.logger.Info("kafka not configured, cart events disabled")
		return event.NoopPublisher{}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	a.producer = producer
	healthHandler.Register("kafka", producer.Ping)
	a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	return event.NewKafkaPublisher(producer, a.logger)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(a.cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.pgPool != nil {
		a.pgPool.Close()
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
