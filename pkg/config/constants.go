package config

import "time"

const (
	// Server ports.
	DefaultHTTPPort      = 8080
	DefaultTelemetryPort = 2112

	// Database drivers.
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// Query cache drivers.
	CacheDriverDatabase = "database"
	CacheDriverRedis    = "redis"
	CacheDriverMemory   = "memory"

	// Event drivers.
	EventDriverMemory = "memory"
	EventDriverNATS   = "nats"
	EventDriverKafka  = "kafka"

	// Database defaults.
	DefaultPostgresPort = 5432
	DefaultRedisPort    = 6379

	// Connection pool defaults.
	DefaultMaxConnections = 25
	DefaultMinConnections = 5
	DefaultMaxRetries     = 3
	DefaultPoolSize       = 10
	DefaultMinIdleConns   = 2

	// Timeout defaults.
	DefaultMaxConnIdleTime    = 30 * time.Minute
	DefaultDialTimeout        = 5 * time.Second
	DefaultReadTimeout        = 3 * time.Second
	DefaultWriteTimeout       = 3 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultSlowQueryThreshold = 200 * time.Millisecond

	// Resolver defaults.
	DefaultCacheTTL         = 24 * time.Hour
	DefaultSweepSchedule    = "@every 10m"
	DefaultSearchLimit      = 10
	MaxSearchLimit          = 50
	DefaultBatchConcurrency = 20
	DefaultMaxBatchItems    = 100
	DefaultProviderTimeout  = 10 * time.Second
	DefaultJikanDelay       = 350 * time.Millisecond
	DefaultRequestsPerIP    = 120

	// Client defaults.
	DefaultRequestsPerMinute = 60
	DefaultSingleTimeout     = 15 * time.Second
	DefaultBatchTimeout      = 60 * time.Second
	DefaultChunkSize         = 20
	DefaultImageCacheSize    = 5000
	DefaultImageCacheTTL     = 24 * time.Hour
)
