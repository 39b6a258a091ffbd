package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/catalog"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/config"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/event"
	handler "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/handler/http"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/service"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/database"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/health"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/httpclient"
	pkgkafka "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/kafka"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/middleware"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "storefront-cart"

const (
	sweepInterval      = time.Minute
	guestPurgeInterval = time.Hour
)

// App wires together all dependencies and runs the storefront cart service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *Store
	producer       *pkgkafka.Producer
	cartService    *service.CartService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	traceCfg := tracing.DefaultConfig(ServiceName)
	traceCfg.Environment = cfg.Environment
	traceCfg.Enabled = cfg.OTELEnabled
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	shutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	healthHandler := health.NewHandler()

	store, err := OpenStore(ctx, cfg, logger, true)
	if err != nil {
		return nil, err
	}
	a.store = store
	healthHandler.Register(store.Name, health.FromPinger(store.Pinger))
	if store.Pool != nil {
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, store.Pool, ServiceName); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	// Optional collaborators stay nil interfaces when disabled.
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	var catalogSource service.CatalogSource
	if cfg.CatalogURL != "" {
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("catalog"),
			logger,
		)
		catalogSource = catalog.NewClient(breaker, cfg.CatalogURL)
		logger.Info("catalog lookups enabled", slog.String("url", cfg.CatalogURL))
	}

	a.cartService = service.NewCartService(store, catalogSource, events, logger, cfg.SessionIdleTimeout())

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(a.cartService, healthHandler, logger, handler.RouterConfig{
		CORS:         cors,
		PprofEnabled: cfg.PprofEnabled,
		PprofCIDRs:   cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and background sweepers, and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go a.cartService.RunSweeper(ctx, sweepInterval)
	if a.store.Postgres != nil && a.cfg.CartTTL > 0 {
		go a.purgeGuests(ctx)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// purgeGuests expires stale guest snapshots in Postgres, which has no TTL.
func (a *App) purgeGuests(ctx context.Context) {
	ticker := time.NewTicker(guestPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.Postgres.PurgeGuests(ctx, a.cfg.CartTTLDuration().Seconds())
			if err != nil {
				a.logger.Error("guest snapshot purge failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.Info("guest snapshots purged", slog.Int64("count", n))
			}
		}
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeClients()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeClients() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("snapshot store close error", slog.String("error", err.Error()))
	}
}
