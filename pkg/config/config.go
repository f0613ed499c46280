package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the interface that all service configs must implement.
type Config interface {
	Validate() error
}

// BaseConfig contains common configuration for all services.
type BaseConfig struct {
	Service  ServiceConfig  `koanf:"service"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Logger   LoggerConfig   `koanf:"logger"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServiceConfig contains service-specific metadata.
type ServiceConfig struct {
	Name            string        `koanf:"name"`
	Version         string        `koanf:"version"`
	Environment     string        `koanf:"environment"` // dev, staging, production
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // postgres or sqlite
	Path            string        `koanf:"path"`   // sqlite file, ":memory:" allowed
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"database"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxConnections  int           `koanf:"max_connections"`
	MinConnections  int           `koanf:"min_connections"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	SlowThreshold   time.Duration `koanf:"slow_threshold"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	KeyPrefix    string        `koanf:"key_prefix"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level       string `koanf:"level"`  // debug, info, warn, error
	Format      string `koanf:"format"` // json, console
	Development bool   `koanf:"development"`
	OutputPath  string `koanf:"output_path"` // stdout, stderr, or file path
	MaxSizeMB   int    `koanf:"max_size_mb"`
	MaxBackups  int    `koanf:"max_backups"`
	MaxAgeDays  int    `koanf:"max_age_days"`
	Compress    bool   `koanf:"compress"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"` // /metrics
	Port    int    `koanf:"port"` // separate port for metrics
}

// Manager handles configuration loading and parsing.
type Manager struct {
	k           *koanf.Koanf
	serviceName string
	configPaths []string
}

// NewManager creates a new configuration manager.
func NewManager(serviceName string) *Manager {
	return &Manager{
		k:           koanf.New("."),
		serviceName: serviceName,
		configPaths: getDefaultConfigPaths(serviceName),
	}
}

// LoadConfig loads configuration from all sources.
func (m *Manager) LoadConfig(cfg Config) error {
	// 1. Load defaults from the struct itself
	if err := m.loadDefaults(cfg); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load from config files (in order of precedence)
	for _, path := range m.configPaths {
		if err := m.loadFromFile(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	// 3. Load from environment variables
	if err := m.loadFromEnv(); err != nil {
		return fmt.Errorf("failed to load from environment: %w", err)
	}

	// 4. Unmarshal into the config struct
	if err := m.k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns a value for the given key.
func (m *Manager) Get(key string) interface{} {
	return m.k.Get(key)
}

// GetString returns a string value for the given key.
func (m *Manager) GetString(key string) string {
	return m.k.String(key)
}

func (m *Manager) loadDefaults(cfg Config) error {
	return m.k.Load(structs.Provider(cfg, "koanf"), nil)
}

func (m *Manager) loadFromFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return m.k.Load(file.Provider(path), parser)
}

// loadFromEnv maps RESOLVER_PROVIDERS_TMDB_API_KEY onto providers.tmdb.api_key.
// Keys are matched against the ones already known from defaults so that
// underscores inside a key name survive; unknown variables split on every "_".
func (m *Manager) loadFromEnv() error {
	prefix := strings.ToUpper(m.serviceName) + "_"

	known := make(map[string]string, len(m.k.Keys()))
	for _, key := range m.k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	return m.k.Load(env.Provider(prefix, ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, prefix))
		if key, ok := known[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}), nil)
}

func getDefaultConfigPaths(serviceName string) []string {
	paths := []string{
		"config.yaml",
		"config.json",
		fmt.Sprintf("%s.yaml", serviceName),
		fmt.Sprintf("%s.json", serviceName),

		"configs/config.yaml",
		"configs/config.json",
		fmt.Sprintf("configs/%s.yaml", serviceName),
		fmt.Sprintf("configs/%s.json", serviceName),

		fmt.Sprintf("configs/%s.%s.yaml", serviceName, getEnvironment()),
		fmt.Sprintf("configs/%s.%s.json", serviceName, getEnvironment()),
	}

	// CONFIG_PATH is loaded last so it wins over the conventional locations.
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		paths = append(paths, configPath)
	}

	return paths
}

func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}

// Validate validates the base configuration.
func (c *BaseConfig) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service name is required")
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid service port: %d", c.Service.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	return nil
}

// GetDefaults returns default configuration values.
func GetDefaults() *BaseConfig {
	return &BaseConfig{
		Service: ServiceConfig{
			Environment:     "dev",
			Port:            DefaultHTTPPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "mediaresolver.db",
			Host:            "localhost",
			Port:            DefaultPostgresPort,
			User:            "narwhal",
			Password:        "narwhal_dev",
			Database:        "mediaresolver",
			SSLMode:         "disable",
			MaxConnections:  DefaultMaxConnections,
			MinConnections:  DefaultMinConnections,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: DefaultMaxConnIdleTime,
			SlowThreshold:   DefaultSlowQueryThreshold,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         DefaultRedisPort,
			DB:           0,
			MaxRetries:   DefaultMaxRetries,
			DialTimeout:  DefaultDialTimeout,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			PoolSize:     DefaultPoolSize,
			MinIdleConns: DefaultMinIdleConns,
			KeyPrefix:    "mediaresolver:",
		},
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "json",
			Development: false,
			OutputPath:  "stdout",
			MaxSizeMB:   100,
			MaxBackups:  5,
			MaxAgeDays:  28,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    DefaultTelemetryPort,
		},
	}
}
