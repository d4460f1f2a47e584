package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services groups the application services exposed over HTTP.
type Services struct {
	Catalog     *service.CatalogService
	Wishlist    *service.WishlistService
	Cart        *service.CartService
	Preferences *service.PreferenceService
	Buses       *bus.Registry
}

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	CORS       middleware.CORSConfig
	PprofCIDRs []string
	// RateLimit bounds wishlist toggles and cart adds per session.
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. Compress and Timeout are applied per group below so
	// the websocket stream is not buffered or cut off.
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(svc.Catalog, logger)
	wishlistHandler := NewWishlistHandler(svc.Wishlist, logger)
	cartHandler := NewCartHandler(svc.Cart, logger)
	prefHandler := NewPreferenceHandler(svc.Preferences, logger)
	streamHandler := NewStreamHandler(svc.Wishlist, svc.Preferences, svc.Buses, cfg.CORS.AllowedOrigins, logger)

	mutationLimit := middleware.RateLimit(cfg.RateLimit, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Use(middleware.NoStore)

		r.Get("/stream", streamHandler.Serve)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(30 * time.Second))
			r.Use(ContentTypeJSON)

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/selected", catalogHandler.GetSelected)
			r.Put("/products/selected", catalogHandler.SelectProduct)

			r.Get("/wishlist", wishlistHandler.GetWishlist)
			r.With(mutationLimit).Post("/wishlist/toggle", wishlistHandler.Toggle)

			r.With(mutationLimit).Post("/cart/items", cartHandler.AddItem)
			r.Get("/cart/items/{productId}/pending", cartHandler.InFlight)
			r.Get("/cart/images", cartHandler.GetImages)

			r.Get("/preferences", prefHandler.Get)
			r.Put("/preferences", prefHandler.Update)
		})
	})

	return r
}
