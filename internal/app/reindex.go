package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/redis/go-redis/v9"

	"github.com/francpeal/buscador/internal/config"
	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/indexer"
	"github.com/francpeal/buscador/internal/source/postgres"
	"github.com/francpeal/buscador/pkg/database"
	pkgkafka "github.com/francpeal/buscador/pkg/kafka"
	"github.com/francpeal/buscador/pkg/tracing"
)

// pushJob is the Pushgateway job the reindex command reports under.
const pushJob = ServiceName + "_reindex"

// Reindexer wires the rebuild pipeline for the reindex command.
type Reindexer struct {
	logger         *slog.Logger
	indexer        *indexer.Indexer
	registry       *prometheus.Registry
	pushURL        string
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
}

// NewReindexer connects to PostgreSQL and Elasticsearch, plus Redis and
// Kafka when enabled. A rebuild always targets Elasticsearch, whatever
// SEARCH_ENGINE says.
func NewReindexer(cfg *config.Config, logger *slog.Logger) (*Reindexer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := newRegistry()
	r := &Reindexer{
		logger:         logger,
		registry:       reg,
		pushURL:        cfg.PushgatewayURL,
		tracerShutdown: tracerShutdown,
	}

	r.pool, err = openPostgres(ctx, cfg, reg, logger)
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	eng, err := newElasticsearch(cfg, logger)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if err := eng.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("elasticsearch: %w", err)
	}

	opts := []indexer.Option{indexer.WithMetrics(indexer.NewMetrics(reg))}

	if cfg.RedisEnabled {
		r.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("rebuild lock enabled", slog.Duration("ttl", cfg.RebuildLockTTL()))
		opts = append(opts, indexer.WithLocker(indexer.NewRedisLocker(r.redis, cfg.RebuildLockTTL())))
	}

	if cfg.KafkaEnabled {
		r.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), reg, logger)
		if err := pingKafkaWithRetry(ctx, r.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, rebuild events may be lost",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		opts = append(opts, indexer.WithPublisher(indexer.NewKafkaPublisher(r.producer, cfg.KafkaRebuildTopic, ServiceName)))
	}

	r.indexer = indexer.New(postgres.New(r.pool), eng, logger, opts...)
	return r, nil
}

// Run rebuilds every entity covered by target. The process is never scraped,
// so when a Pushgateway is configured the registry is pushed once the rebuild
// ends, failed or not.
func (r *Reindexer) Run(ctx context.Context, target domain.Target) ([]*indexer.Report, error) {
	reports, err := r.indexer.RebuildTarget(ctx, target)
	if r.pushURL != "" {
		if perr := r.pushMetrics(ctx); perr != nil {
			r.logger.Warn("push rebuild metrics failed",
				slog.String("url", r.pushURL),
				slog.String("error", perr.Error()),
			)
		}
	}
	return reports, err
}

// pushMetrics replaces the job's metrics on the Pushgateway. It outlives a
// canceled rebuild context so interrupted runs still report.
func (r *Reindexer) pushMetrics(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := push.New(r.pushURL, pushJob).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Close releases every connection the reindexer opened.
func (r *Reindexer) Close() error {
	var errs []error
	if r.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if r.producer != nil {
		if err := r.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
