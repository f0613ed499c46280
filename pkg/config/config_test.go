package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/mediaresolver/pkg/config"
)

func TestLoadServiceConfig_Defaults(t *testing.T) {
	cfg := config.GetDefaultResolverConfig()

	err := config.LoadServiceConfig("resolver", cfg)

	require.NoError(t, err)
	assert.Equal(t, "resolver", cfg.Service.Name)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, config.CacheDriverDatabase, cfg.Resolver.CacheDriver)
	assert.Equal(t, 24*time.Hour, cfg.Resolver.CacheTTL)
	assert.Equal(t, 350*time.Millisecond, cfg.Providers.Jikan.Delay)
	assert.Equal(t, "https://api.jikan.moe/v4", cfg.Providers.Jikan.BaseURL)
	assert.Empty(t, cfg.Providers.TMDB.APIKey)
}

func TestLoadServiceConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RESOLVER_PROVIDERS_TMDB_API_KEY", "tmdb-secret")
	t.Setenv("RESOLVER_PROVIDERS_OMDB_API_KEY", "omdb-secret")
	t.Setenv("RESOLVER_RESOLVER_CACHE_TTL", "1h")
	t.Setenv("RESOLVER_SERVICE_PORT", "9000")

	cfg := config.GetDefaultResolverConfig()
	err := config.LoadServiceConfig("resolver", cfg)

	require.NoError(t, err)
	assert.Equal(t, "tmdb-secret", cfg.Providers.TMDB.APIKey)
	assert.Equal(t, "omdb-secret", cfg.Providers.OMDb.APIKey)
	assert.Equal(t, time.Hour, cfg.Resolver.CacheTTL)
	assert.Equal(t, 9000, cfg.Service.Port)
}

func TestLoadServiceConfig_FileFromConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.yaml")
	yaml := []byte(`
resolver:
  cache_driver: memory
  sweep_schedule: "@every 1m"
events:
  driver: kafka
  kafka:
    topic: media-events
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg := config.GetDefaultResolverConfig()
	err := config.LoadServiceConfig("resolver", cfg)

	require.NoError(t, err)
	assert.Equal(t, config.CacheDriverMemory, cfg.Resolver.CacheDriver)
	assert.Equal(t, "@every 1m", cfg.Resolver.SweepSchedule)
	assert.Equal(t, config.EventDriverKafka, cfg.Events.Driver)
	assert.Equal(t, "media-events", cfg.Events.Kafka.Topic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.Kafka.Brokers)
}

func TestResolverConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ResolverConfig)
		errMsg string
	}{
		{"unknown cache driver", func(c *config.ResolverConfig) { c.Resolver.CacheDriver = "memcached" }, "unsupported cache driver"},
		{"short ttl", func(c *config.ResolverConfig) { c.Resolver.CacheTTL = time.Second }, "cache ttl"},
		{"default above max", func(c *config.ResolverConfig) { c.Resolver.DefaultLimit = 60 }, "invalid search limits"},
		{"nats without url", func(c *config.ResolverConfig) {
			c.Events.Driver = config.EventDriverNATS
			c.Events.NATS.URL = ""
		}, "nats url"},
		{"postgres without host", func(c *config.ResolverConfig) {
			c.Database.Driver = config.DriverPostgres
			c.Database.Host = ""
		}, "database host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GetDefaultResolverConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestClientConfig_Validate(t *testing.T) {
	cfg := config.GetDefaultClientConfig()
	require.NoError(t, cfg.Validate())

	cfg.Client.RequestsPerMinute = 0
	assert.Error(t, cfg.Validate())
}

func TestLoggerConfig_ToLoggerConfig(t *testing.T) {
	cfg := config.LoggerConfig{Level: "warn", Format: "console", OutputPath: "/var/log/resolver.log", MaxSizeMB: 10}

	lc := cfg.ToLoggerConfig()

	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "console", lc.Encoding)
	assert.Equal(t, []string{"/var/log/resolver.log"}, lc.OutputPaths)
	assert.Equal(t, 10, lc.Rotation.MaxSizeMB)
}

func TestDatabaseConfig_ToDatabaseConfig(t *testing.T) {
	cfg := config.GetDefaults().Database

	dc := cfg.ToDatabaseConfig(true)

	assert.Equal(t, "sqlite", dc.Driver)
	assert.Equal(t, "mediaresolver.db", dc.DSN())
	assert.Equal(t, config.DefaultSlowQueryThreshold, dc.SlowThreshold)
	assert.True(t, dc.Debug)
}
