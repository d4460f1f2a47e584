package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/upstream"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront state service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	slots          *slotBackend
	producer       *pkgkafka.Producer
	health         *health.Handler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Configure slow query logging for both slot backends.
	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	slots, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Analytics producer. Publishing is asynchronous so a slow broker never
	// delays a toggle or an add.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher = event.Noop{}
	)
	if cfg.KafkaEnabled() {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		kafkaCfg.Async = true
		producer = pkgkafka.NewProducer(kafkaCfg, logger)
		if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewProducer(producer, logger)
	} else {
		logger.Info("kafka disabled, analytics events are not published")
	}

	// Build the dependency graph.
	api := upstream.NewClient(upstream.Config{
		BaseURL:       cfg.UpstreamBaseURL,
		Timeout:       cfg.UpstreamTimeout,
		MaxRetries:    cfg.UpstreamMaxRetries,
		SessionHeader: cfg.UpstreamSessionHeader,
	}, logger)
	buses := bus.NewRegistry()

	wishlistService := service.NewWishlistService(slots.store, buses, publisher, logger)
	services := handler.Services{
		Catalog:     service.NewCatalogService(api, wishlistService, slots.store, logger),
		Wishlist:    wishlistService,
		Cart:        service.NewCartService(api, slots.store, buses, publisher, logger),
		Preferences: service.NewPreferenceService(slots.store, slots.watcher, logger),
		Buses:       buses,
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("storage", slots.store.Ping)
	healthHandler.RegisterNonCritical("upstream", api.Healthy)
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	router := handler.NewRouter(services, healthHandler, logger, handler.RouterConfig{
		CORS:       cors,
		PprofCIDRs: cfg.DebugAllowedCIDRs,
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		slots:          slots,
		producer:       producer,
		health:         healthHandler,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and background jobs, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.slots.purge != nil {
		go runPurge(ctx, a.slots.purge, a.logger)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: readiness drain, HTTP
// server, tracer, Kafka producer, slot storage.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	a.health.Drain()

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.slots.close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s with ±25% jitter between them).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	const attempts = 3
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", attempts, lastErr)
}
