package config

import (
	"fmt"
	"os"

	"github.com/narwhalmedia/mediaresolver/pkg/database"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

// LoadServiceConfig is a generic helper to load service configuration
func LoadServiceConfig[T Config](serviceName string, cfg T) error {
	manager := NewManager(serviceName)
	return manager.LoadConfig(cfg)
}

// MustLoadServiceConfig loads config and panics on error (for main functions)
func MustLoadServiceConfig[T Config](serviceName string, cfg T) T {
	if err := LoadServiceConfig(serviceName, cfg); err != nil {
		panic(fmt.Sprintf("failed to load %s config: %v", serviceName, err))
	}
	return cfg
}

// ToLoggerConfig converts config to logger package config
func (c LoggerConfig) ToLoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	if c.Development {
		cfg = logger.DevelopmentConfig()
	}
	if c.Level != "" {
		cfg.Level = c.Level
	}
	if c.Format != "" {
		cfg.Encoding = c.Format
	}
	if c.OutputPath != "" {
		cfg.OutputPaths = []string{c.OutputPath}
	}
	cfg.Rotation = logger.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
	return cfg
}

// ToDatabaseConfig converts config to database package config
func (c DatabaseConfig) ToDatabaseConfig(debug bool) *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Path:            c.Path,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		MaxConnections:  c.MaxConnections,
		MinConnections:  c.MinConnections,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		SlowThreshold:   c.SlowThreshold,
		Debug:           debug,
	}
}

// GetServiceVersion returns the service version from config or environment
func GetServiceVersion(cfg *ServiceConfig) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	if version := os.Getenv("SERVICE_VERSION"); version != "" {
		return version
	}
	return "dev"
}

// IsProduction returns true if running in production environment
func IsProduction(cfg *ServiceConfig) bool {
	return cfg.Environment == "production" || cfg.Environment == "prod"
}

// GetListenAddress returns the formatted listen address for HTTP server
func GetListenAddress(cfg *ServiceConfig) string {
	return fmt.Sprintf(":%d", cfg.Port)
}

// Address returns host:port for the redis client.
func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
