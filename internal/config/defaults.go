package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost        = "0.0.0.0"
	DefaultServerPort        = 8080
	DefaultServerMode        = "release"
	DefaultAdminHeader       = "X-Admin-ID"
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBName            = "freshguard"
	DefaultDBMaxConns        = 10
	DefaultDBSSLMode         = "disable"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 10
	DefaultRedisKeyPrefix    = "freshguard:"
	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaTopic        = "freshguard.expiry.notifications"
	DefaultKafkaMaxAttempts  = 3
	DefaultMinIOEndpoint     = "localhost:9000"
	DefaultMinIOBucket       = "freshguard-ledger"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultMetricsNamespace  = "freshguard"
	DefaultMetricsPath       = "/metrics"
	DefaultTimezone          = "Europe/Berlin"
	DefaultWarningDays       = 3
	DefaultCriticalDays      = 0
	DefaultDedupFallback     = "warning"
	DefaultLockTTL           = 10 * time.Second
	DefaultHistoryLimit      = 50
	DefaultHistoryMaxLimit   = 500
	DefaultMaxNoteLength     = 500
	DefaultReminderItemLimit = 50
	DefaultArchivePrefix     = "ledger"
)

// ApplyDefaults fills every zero-value field in cfg with the default.
// Fields already set by the caller are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.AdminHeader == "" {
		cfg.Server.AdminHeader = DefaultAdminHeader
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.MaxAttempts == 0 {
		cfg.Kafka.MaxAttempts = DefaultKafkaMaxAttempts
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Expiry ────────────────────────────────────────────────────────────────
	// Threshold days of 0 are meaningful, so they are only defaulted through
	// registerDefaults when the key is absent altogether.
	if cfg.Expiry.Timezone == "" {
		cfg.Expiry.Timezone = DefaultTimezone
	}
	if cfg.Expiry.DedupFallback == "" {
		cfg.Expiry.DedupFallback = DefaultDedupFallback
	}
	if cfg.Expiry.StoreBackend == "" {
		cfg.Expiry.StoreBackend = StoreMemory
	}
	if cfg.Expiry.LockBackend == "" {
		cfg.Expiry.LockBackend = LockLocal
	}
	if cfg.Expiry.LockTTL == 0 {
		cfg.Expiry.LockTTL = DefaultLockTTL
	}
	if cfg.Expiry.HistoryDefaultLimit == 0 {
		cfg.Expiry.HistoryDefaultLimit = DefaultHistoryLimit
	}
	if cfg.Expiry.HistoryMaxLimit == 0 {
		cfg.Expiry.HistoryMaxLimit = DefaultHistoryMaxLimit
	}
	if cfg.Expiry.MaxNoteLength == 0 {
		cfg.Expiry.MaxNoteLength = DefaultMaxNoteLength
	}
	if cfg.Expiry.ReminderItemLimit == 0 {
		cfg.Expiry.ReminderItemLimit = DefaultReminderItemLimit
	}
	if cfg.Expiry.ArchivePrefix == "" {
		cfg.Expiry.ArchivePrefix = DefaultArchivePrefix
	}
}

// registerDefaults seeds viper so every key is known to AutomaticEnv and
// Unmarshal even when no config file sets it.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.admin_header", DefaultAdminHeader)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.host", DefaultDBHost)
	v.SetDefault("database.port", DefaultDBPort)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", DefaultDBName)
	v.SetDefault("database.ssl_mode", DefaultDBSSLMode)
	v.SetDefault("database.max_conns", DefaultDBMaxConns)

	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", DefaultRedisKeyPrefix)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.topic", DefaultKafkaTopic)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", DefaultMinIOBucket)
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)

	v.SetDefault("expiry.timezone", DefaultTimezone)
	v.SetDefault("expiry.warning_days", DefaultWarningDays)
	v.SetDefault("expiry.critical_days", DefaultCriticalDays)
	v.SetDefault("expiry.dedup_fallback", DefaultDedupFallback)
	v.SetDefault("expiry.undo_restores_date", false)
	v.SetDefault("expiry.store_backend", StoreMemory)
	v.SetDefault("expiry.snapshot_path", "")
	v.SetDefault("expiry.lock_backend", LockLocal)
	v.SetDefault("expiry.lock_ttl", DefaultLockTTL)
	v.SetDefault("expiry.archive_prefix", DefaultArchivePrefix)
}
