// Package config defines the configuration structures for the FreshGuard
// expiry service. No I/O lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdminHeader carries the authenticated admin id on mutating requests.
	AdminHeader string `mapstructure:"admin_header"`
	// CORSOrigins lists the admin UI origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the notification producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	// RequiredAcks is 1 (leader) or -1 (all in-sync replicas).
	RequiredAcks int           `mapstructure:"required_acks"`
}

// MinIOConfig holds the ledger archive bucket parameters.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ExpiryConfig holds the freshness engine parameters.
type ExpiryConfig struct {
	// Timezone names the IANA zone that defines "today".
	Timezone string `mapstructure:"timezone"`

	// WarningDays and CriticalDays seed the settings row when the store has
	// none yet. Settings changed through the API take precedence.
	WarningDays  int `mapstructure:"warning_days"`
	CriticalDays int `mapstructure:"critical_days"`

	DedupFallback    string `mapstructure:"dedup_fallback"` // "warning" | "critical"
	UndoRestoresDate bool   `mapstructure:"undo_restores_date"`

	StoreBackend string `mapstructure:"store_backend"` // "memory" | "postgres"
	SnapshotPath string `mapstructure:"snapshot_path"`

	LockBackend string        `mapstructure:"lock_backend"` // "local" | "redis"
	LockTTL     time.Duration `mapstructure:"lock_ttl"`

	HistoryDefaultLimit int    `mapstructure:"history_default_limit"`
	HistoryMaxLimit     int    `mapstructure:"history_max_limit"`
	MaxNoteLength       int    `mapstructure:"max_note_length"`
	ReminderItemLimit   int    `mapstructure:"reminder_item_limit"`
	ArchivePrefix       string `mapstructure:"archive_prefix"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Expiry   ExpiryConfig   `mapstructure:"expiry"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// Sections for disabled backends are not checked.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.AdminHeader == "" {
		return fmt.Errorf("config: server.admin_header is required")
	}

	// Expiry
	if _, err := domainExpiry.LoadCalendar(domainExpiry.SystemClock{}, c.Expiry.Timezone); err != nil {
		return fmt.Errorf("config: expiry.timezone %q: %w", c.Expiry.Timezone, err)
	}
	seed := domainExpiry.Settings{Enabled: true, WarningDays: c.Expiry.WarningDays, CriticalDays: c.Expiry.CriticalDays}
	if err := seed.Validate(); err != nil {
		return fmt.Errorf("config: expiry thresholds: %w", err)
	}
	if _, err := domainExpiry.ParseFallbackPolicy(c.Expiry.DedupFallback); err != nil {
		return fmt.Errorf("config: expiry.dedup_fallback %q is invalid; expected warning|critical", c.Expiry.DedupFallback)
	}
	switch c.Expiry.StoreBackend {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("config: expiry.store_backend %q is invalid; expected memory|postgres", c.Expiry.StoreBackend)
	}
	switch c.Expiry.LockBackend {
	case LockLocal:
	case LockRedis:
		if c.Expiry.LockTTL <= 0 {
			return fmt.Errorf("config: expiry.lock_ttl must be > 0 for the redis lock")
		}
	default:
		return fmt.Errorf("config: expiry.lock_backend %q is invalid; expected local|redis", c.Expiry.LockBackend)
	}
	if c.Expiry.HistoryDefaultLimit > c.Expiry.HistoryMaxLimit {
		return fmt.Errorf("config: expiry.history_default_limit %d exceeds history_max_limit %d",
			c.Expiry.HistoryDefaultLimit, c.Expiry.HistoryMaxLimit)
	}

	// Database
	if c.Expiry.StoreBackend == StorePostgres {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	// Redis
	if c.Expiry.LockBackend == LockRedis {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

// Backend names accepted by ExpiryConfig.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	LockLocal     = "local"
	LockRedis     = "redis"
)

// DSN renders the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}
