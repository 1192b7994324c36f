package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/francpeal/buscador/internal/service"
	"github.com/francpeal/buscador/pkg/health"
	"github.com/francpeal/buscador/pkg/middleware"
)

// RouterOptions carries the cross-cutting settings of the router.
type RouterOptions struct {
	ServiceName       string
	CORSOrigins       []string
	PprofAllowedCIDRs []string
	RequestTimeout    time.Duration

	// Per-client-IP limit on the search routes; zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all search service routes registered.
// HTTP metrics are registered in reg and exposed, with everything else in
// reg, on /metrics.
func NewRouter(
	searchService *service.SearchService,
	healthHandler *health.Handler,
	reg *prometheus.Registry,
	opts RouterOptions,
	logger *slog.Logger,
) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	httpMetrics := middleware.NewHTTPMetrics(reg, opts.ServiceName)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))
	r.Use(httpMetrics.Middleware)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	middleware.RegisterPprof(r, opts.PprofAllowedCIDRs, logger)

	h := NewSearchHandler(searchService, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, logger))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.SearchItems)
			r.Get("/suggest", h.SuggestItems)
			r.Get("/{codigo}", h.GetItem)
		})
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.SearchClients)
			r.Get("/suggest", h.SuggestClients)
			r.Get("/{cliente_id}", h.GetClient)
		})
	})

	return r
}
