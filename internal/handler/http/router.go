package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhallard/storefront-cart/pkg/health"
	"github.com/nhallard/storefront-cart/pkg/middleware"
)

// RouterConfig carries the knobs the router needs from app configuration.
type RouterConfig struct {
	ServiceName    string
	JWTSecret      string
	RateLimitRPS   int
	RateLimitBurst int
	PprofCIDRs     []string
	TracingEnabled bool
}

// NewRouter assembles the HTTP surface: cart endpoints under /api/v1, plus
// health, metrics, and optional pprof.
func NewRouter(cfg RouterConfig, cart *CartHandler, healthHandler *health.Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(log))
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, log)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		r.Use(Identity(cfg.JWTSecret))
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Route("/items/{productID}", func(r chi.Router) {
				r.Put("/", cart.UpdateItem)
				r.Delete("/", cart.RemoveItem)
			})
		})
	})

	return r
}
