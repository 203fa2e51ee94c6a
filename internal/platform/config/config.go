package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ASAMBLEA_ADDR" envDefault:":8080"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`

	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Mongo     MongoConfig     `envPrefix:"MONGO_"`
	Kafka     KafkaConfig     `envPrefix:"KAFKA_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Audit     AuditConfig     `envPrefix:"AUDIT_"`
}

// DatabaseConfig configures the Postgres stores. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"URL"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ApplySchema     bool          `env:"APPLY_SCHEMA" envDefault:"true"`
}

// RedisConfig configures sessions and the change feed. An empty URL selects
// the in-memory session store and feed.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// MongoConfig selects the document-backed question store when URI is set.
type MongoConfig struct {
	URI            string        `env:"URI"`
	Database       string        `env:"DATABASE" envDefault:"asamblea"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

// KafkaConfig enables the audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string `env:"BROKERS" envSeparator:","`
	AuditTopic        string   `env:"AUDIT_TOPIC" envDefault:"asamblea.audit"`
	Partitions        int32    `env:"PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"REPLICATION_FACTOR" envDefault:"1"`
}

// StorageConfig selects where uploaded power-of-attorney files go.
type StorageConfig struct {
	Dir         string `env:"DIR"`
	MaxFileSize int64  `env:"MAX_FILE_SIZE" envDefault:"8388608"`
}

// RateLimitConfig bounds registration lookups per client IP.
type RateLimitConfig struct {
	ResolvePerMinute int `env:"RESOLVE_PER_MINUTE" envDefault:"30"`
	ResolveBurst     int `env:"RESOLVE_BURST" envDefault:"10"`
}

// AuditConfig tunes the async audit publisher.
type AuditConfig struct {
	Buffer int `env:"BUFFER" envDefault:"256"`
}

// IsProduction reports whether dev defaults must be rejected.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (s Server) Validate() error {
	if s.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	if s.IsProduction() && s.JWTSigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if s.RateLimit.ResolvePerMinute <= 0 || s.RateLimit.ResolveBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RESOLVE_PER_MINUTE and RATE_LIMIT_RESOLVE_BURST must be positive")
	}
	if s.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("STORAGE_MAX_FILE_SIZE must be positive")
	}
	return nil
}
