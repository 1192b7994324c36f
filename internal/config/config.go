package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/francpeal/buscador/pkg/database"
	"github.com/francpeal/buscador/pkg/validator"
)

// Engine names accepted by SEARCH_ENGINE.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for the search server and the reindex command.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`

	// HTTP server
	HTTPPort           int      `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	RequestTimeoutSecs int      `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30" validate:"gt=0"`
	CORSOrigins        []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Per-client-IP rate limit on search routes; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50" validate:"gte=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100" validate:"gte=0"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch" validate:"oneof=elasticsearch memory"`

	// Elasticsearch
	ElasticsearchURLs     []string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200" envSeparator:","`
	ElasticsearchUser     string   `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string   `env:"ELASTICSEARCH_PASSWORD"`
	ItemsIndex            string   `env:"ITEMS_INDEX" envDefault:"items" validate:"required"`
	ClientsIndex          string   `env:"CLIENTS_INDEX" envDefault:"clients" validate:"required"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"buscador"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"buscador"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"erp"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Server-side statement timeout; zero keeps the server default.
	StatementTimeoutSecs int `env:"POSTGRES_STATEMENT_TIMEOUT_SECONDS" envDefault:"0" validate:"gte=0"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis rebuild lock
	RedisEnabled          bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost             string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort             int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	RebuildLockTTLMinutes int    `env:"REBUILD_LOCK_TTL_MINUTES" envDefault:"60"`

	// Kafka rebuild events
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaRebuildTopic string   `env:"KAFKA_REBUILD_TOPIC" envDefault:"search.index.rebuilt"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Prometheus Pushgateway for the reindex command; empty disables pushing
	PushgatewayURL string `env:"PROMETHEUS_PUSHGATEWAY_URL" validate:"omitempty,url"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.SearchEngine = strings.ToLower(strings.TrimSpace(c.SearchEngine))

	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("invalid search config: %w", err)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("invalid PostgreSQL port: %d", c.PostgresPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be > 0, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.DBMinConns)
	}
	if c.SearchEngine == EngineElasticsearch && len(c.ElasticsearchURLs) == 0 {
		return fmt.Errorf("ELASTICSEARCH_URL is required")
	}
	if c.ItemsIndex == c.ClientsIndex {
		return fmt.Errorf("ITEMS_INDEX and CLIENTS_INDEX must differ, both are %q", c.ItemsIndex)
	}
	if c.RedisEnabled && c.RebuildLockTTLMinutes <= 0 {
		return fmt.Errorf("REBUILD_LOCK_TTL_MINUTES must be > 0, got %d", c.RebuildLockTTLMinutes)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
		}
		if strings.TrimSpace(c.KafkaRebuildTopic) == "" {
			return fmt.Errorf("KAFKA_REBUILD_TOPIC is required when KAFKA_ENABLED is set")
		}
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:             c.PostgresHost,
		Port:             c.PostgresPort,
		User:             c.PostgresUser,
		Password:         c.PostgresPass,
		DBName:           c.PostgresDB,
		SSLMode:          c.PostgresSSL,
		MaxConns:         c.DBMaxConns,
		MinConns:         c.DBMinConns,
		MaxConnLifetime:  time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime:  time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
		StatementTimeout: time.Duration(c.StatementTimeoutSecs) * time.Second,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// RebuildLockTTL returns the lifetime of a rebuild lock.
func (c *Config) RebuildLockTTL() time.Duration {
	return time.Duration(c.RebuildLockTTLMinutes) * time.Minute
}

// RequestTimeout returns the per-request handler timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// SlowQueryThreshold returns the slow query logging threshold; zero disables it.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
