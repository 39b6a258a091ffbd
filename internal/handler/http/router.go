package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/service"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/health"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/middleware"
)

const serviceName = "storefront-cart"

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	CORS middleware.CORSConfig
	// PprofEnabled mounts /debug/pprof for PprofCIDRs.
	PprofEnabled bool
	PprofCIDRs   []string
}

// NewRouter creates a chi router with all cart routes registered.
func NewRouter(
	cartService *service.CartService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	cartHandler := NewCartHandler(cartService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Session(true))
		r.Use(middleware.NoStore)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
			r.Put("/items/{productId}/quantity", cartHandler.SetQuantity)
			r.Post("/items/{productId}/increase", cartHandler.IncreaseQuantity)
			r.Post("/items/{productId}/decrease", cartHandler.DecreaseQuantity)
		})

		r.Delete("/session", cartHandler.EndSession)
	})

	return r
}
