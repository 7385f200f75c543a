// Package config holds the cart service's environment-driven configuration.
package config

import (
	"fmt"

	pkgconfig "github.com/nhallard/storefront-cart/pkg/config"
)

// Catalog adapter modes.
const (
	CatalogModeHTTP     = "http"
	CatalogModePostgres = "postgres"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"cart-service"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort        int `env:"HTTP_PORT" envDefault:"8002"`
	ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// CartTTLHours expires idle carts; 0 keeps them forever.
	CartTTLHours int `env:"CART_TTL_HOURS" envDefault:"0"`

	// CatalogMode selects how products are resolved: "http" calls the catalog
	// service's API, "postgres" reads the catalog database directly.
	CatalogMode string `env:"CATALOG_MODE" envDefault:"http"`
	CatalogURL  string `env:"CATALOG_URL" envDefault:"http://localhost:8001"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// KafkaBrokers enables event publishing when non-empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// JWTSecret switches identity from the gateway's X-User-ID header to
	// Bearer token verification.
	JWTSecret string `env:"JWT_SECRET"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"100"`

	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"0.1"`
	ServiceVersion    string  `env:"SERVICE_VERSION" envDefault:"dev"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg, err := pkgconfig.Load[Config]()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CatalogMode {
	case CatalogModeHTTP, CatalogModePostgres:
	default:
		return fmt.Errorf("invalid CATALOG_MODE %q", c.CatalogMode)
	}
	if c.CatalogMode == CatalogModeHTTP && c.CatalogURL == "" {
		return fmt.Errorf("CATALOG_URL is required in http catalog mode")
	}
	if c.CartTTLHours < 0 {
		return fmt.Errorf("CART_TTL_HOURS must not be negative")
	}
	return nil
}
