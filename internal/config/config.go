package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "shoe-erp-orders"
	ServiceVersion = "0.1.0"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration

	MySQL MySQLConfig
	Redis RedisConfig

	AMQPURL        string
	EventWorkers   int
	EventQueueSize int

	OtelEndpoint string
}

type MySQLConfig struct {
	DSN             string
	Addr            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig is optional; an empty Addr disables idempotency keys and the
// detail cache.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
	DetailTTL      time.Duration
}

func Load() (*Config, error) {
	var p parser

	cfg := &Config{
		Env:             getEnv("APP_ENV", "production"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:        getEnv("GRPC_ADDR", ":50051"),
		ShutdownTimeout: p.durationVar("SHUTDOWN_TIMEOUT", 5*time.Second),
		MySQL: MySQLConfig{
			DSN:             os.Getenv("MYSQL_DSN"),
			Addr:            getEnv("MYSQL_ADDR", "localhost:3306"),
			User:            getEnv("MYSQL_USER", "root"),
			Password:        getEnv("MYSQL_PASSWORD", "root"),
			Database:        getEnv("MYSQL_DATABASE", "erp_zapateria"),
			MaxOpenConns:    p.intVar("MYSQL_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    p.intVar("MYSQL_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: p.durationVar("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     p.boolVar("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:           os.Getenv("REDIS_ADDR"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             p.intVar("REDIS_DB", 0),
			PoolSize:       p.intVar("REDIS_POOL_SIZE", 100),
			LockTTL:        p.durationVar("IDEMPOTENCY_LOCK_TTL", 30*time.Second),
			IdempotencyTTL: p.durationVar("IDEMPOTENCY_TTL", 24*time.Hour),
			DetailTTL:      p.durationVar("ORDER_DETAIL_CACHE_TTL", 10*time.Minute),
		},
		AMQPURL:        os.Getenv("AMQP_URL"),
		EventWorkers:   p.intVar("EVENT_WORKERS", 4),
		EventQueueSize: p.intVar("EVENT_QUEUE_SIZE", 1000),
		OtelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if p.err != nil {
		return nil, p.err
	}
	if cfg.EventWorkers < 1 {
		return nil, fmt.Errorf("EVENT_WORKERS must be at least 1")
	}
	if cfg.Redis.LockTTL <= 0 || cfg.Redis.LockTTL > cfg.Redis.IdempotencyTTL {
		return nil, fmt.Errorf("IDEMPOTENCY_LOCK_TTL must be positive and not exceed IDEMPOTENCY_TTL")
	}
	if cfg.EventQueueSize < 1 {
		return nil, fmt.Errorf("EVENT_QUEUE_SIZE must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) intVar(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) boolVar(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
