package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/francpeal/buscador/internal/config"
	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/engine"
	"github.com/francpeal/buscador/internal/engine/elasticsearch"
	"github.com/francpeal/buscador/internal/engine/memory"
	handler "github.com/francpeal/buscador/internal/handler/http"
	"github.com/francpeal/buscador/internal/indexer"
	"github.com/francpeal/buscador/internal/service"
	"github.com/francpeal/buscador/internal/source/postgres"
	"github.com/francpeal/buscador/pkg/database"
	"github.com/francpeal/buscador/pkg/health"
	"github.com/francpeal/buscador/pkg/tracing"
)

// ServiceName identifies the process in logs, traces and metrics.
const ServiceName = "buscador"

// App wires together all dependencies and runs the search server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// With the memory engine both indices are rebuilt from PostgreSQL before the
// server is returned.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := newRegistry()

	pool, err := openPostgres(ctx, cfg, reg, logger)
	if err != nil {
		return nil, err
	}
	src := postgres.New(pool)

	eng, err := newSearchEngine(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if mem, ok := eng.(*memory.Engine); ok {
		// The startup rebuild is not bound by the 10s wiring budget.
		ix := indexer.New(src, mem, logger, indexer.WithMetrics(indexer.NewMetrics(reg)))
		if _, err := ix.RebuildTarget(context.Background(), domain.TargetAll); err != nil {
			pool.Close()
			return nil, fmt.Errorf("load memory engine: %w", err)
		}
		logger.Info("memory engine loaded",
			slog.Int("items", mem.Count(domain.EntityItem)),
			slog.Int("clients", mem.Count(domain.EntityClient)),
		)
	}

	searchService := service.NewSearchService(eng, src, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical(cfg.SearchEngine, eng.Ping)
	healthHandler.RegisterNonCritical("postgres", src.Ping)

	router := handler.NewRouter(searchService, healthHandler, reg, handler.RouterOptions{
		ServiceName:       ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		RequestTimeout:    cfg.RequestTimeout(),
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("engine", a.cfg.SearchEngine),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
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

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func tracerConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	}
}

// newRegistry returns a registry carrying the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func openPostgres(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, pool, ServiceName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}
	return pool, nil
}

func newSearchEngine(cfg *config.Config, logger *slog.Logger) (engine.SearchEngine, error) {
	if cfg.SearchEngine == config.EngineMemory {
		logger.Warn("using in-memory search engine, indices are rebuilt at startup")
		return memory.New(), nil
	}
	return newElasticsearch(cfg, logger)
}

func newElasticsearch(cfg *config.Config, logger *slog.Logger) (*elasticsearch.Engine, error) {
	eng, err := elasticsearch.New(elasticsearch.Config{
		Addresses:    cfg.ElasticsearchURLs,
		Username:     cfg.ElasticsearchUser,
		Password:     cfg.ElasticsearchPassword,
		ItemsIndex:   cfg.ItemsIndex,
		ClientsIndex: cfg.ClientsIndex,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return eng, nil
}
