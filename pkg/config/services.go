package config

import (
	"errors"
	"fmt"
	"time"
)

// ResolverConfig extends BaseConfig with resolver-specific settings
type ResolverConfig struct {
	BaseConfig `koanf:",squash,flatten"`
	Resolver   ResolverSettings `koanf:"resolver"`
	Providers  ProvidersConfig  `koanf:"providers"`
	Events     EventsConfig     `koanf:"events"`
	HTTP       HTTPConfig       `koanf:"http"`
}

// ResolverSettings tunes the search pipeline.
type ResolverSettings struct {
	CacheDriver      string        `koanf:"cache_driver"` // database, redis, memory
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	SweepSchedule    string        `koanf:"sweep_schedule"` // cron spec, empty disables the sweep
	DefaultLimit     int           `koanf:"default_limit"`
	MaxLimit         int           `koanf:"max_limit"`
	BatchConcurrency int           `koanf:"batch_concurrency"`
	MaxBatchItems    int           `koanf:"max_batch_items"`
}

// ProvidersConfig holds endpoints and credentials of the catalog providers.
// API keys are optional; a provider without its key returns nothing.
type ProvidersConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Retries uint          `koanf:"retries"`

	AniList ProviderEndpoint `koanf:"anilist"`
	Jikan   JikanConfig      `koanf:"jikan"`
	TMDB    TMDBConfig       `koanf:"tmdb"`
	OMDb    ProviderEndpoint `koanf:"omdb"`
	TVMaze  ProviderEndpoint `koanf:"tvmaze"`
}

// ProviderEndpoint is the common shape of a provider's settings.
type ProviderEndpoint struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

// JikanConfig adds the fixed per-request delay Jikan's free tier needs.
type JikanConfig struct {
	ProviderEndpoint `koanf:",squash,flatten"`
	Delay            time.Duration `koanf:"delay"`
}

// TMDBConfig adds the image CDN used to build poster URLs.
type TMDBConfig struct {
	ProviderEndpoint `koanf:",squash,flatten"`
	ImageBaseURL     string `koanf:"image_base_url"`
}

// EventsConfig selects where media.resolved events go.
type EventsConfig struct {
	Driver string      `koanf:"driver"` // memory, nats, kafka
	NATS   NATSConfig  `koanf:"nats"`
	Kafka  KafkaConfig `koanf:"kafka"`
}

// NATSConfig contains NATS JetStream settings.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	ClientID      string        `koanf:"client_id"`
	MaxReconnect  int           `koanf:"max_reconnect"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// KafkaConfig contains Kafka producer settings.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	RequestsPerIP int           `koanf:"requests_per_ip"` // per minute, 0 disables
}

// Validate validates the resolver configuration
func (c *ResolverConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	switch c.Resolver.CacheDriver {
	case CacheDriverDatabase, CacheDriverMemory:
	case CacheDriverRedis:
		if c.Redis.Host == "" {
			return errors.New("redis host is required for the redis cache driver")
		}
	default:
		return fmt.Errorf("unsupported cache driver: %q", c.Resolver.CacheDriver)
	}
	if c.Resolver.CacheTTL < time.Minute {
		return errors.New("cache ttl must be at least 1 minute")
	}
	if c.Resolver.MaxLimit < 1 || c.Resolver.DefaultLimit < 1 || c.Resolver.DefaultLimit > c.Resolver.MaxLimit {
		return fmt.Errorf("invalid search limits: default %d, max %d", c.Resolver.DefaultLimit, c.Resolver.MaxLimit)
	}
	if c.Resolver.BatchConcurrency < 1 {
		return errors.New("batch concurrency must be at least 1")
	}
	if c.Resolver.MaxBatchItems < 1 {
		return errors.New("max batch items must be at least 1")
	}
	if c.Providers.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	switch c.Events.Driver {
	case EventDriverMemory:
	case EventDriverNATS:
		if c.Events.NATS.URL == "" {
			return errors.New("nats url is required for the nats event driver")
		}
	case EventDriverKafka:
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "" {
			return errors.New("kafka brokers and topic are required for the kafka event driver")
		}
	default:
		return fmt.Errorf("unsupported event driver: %q", c.Events.Driver)
	}
	return nil
}

// ClientConfig configures mediactl, the client side of the resolver.
type ClientConfig struct {
	Logger LoggerConfig   `koanf:"logger"`
	Client ClientSettings `koanf:"client"`
}

// ClientSettings tunes the fetch queue and the batch fetcher.
type ClientSettings struct {
	ServerURL         string        `koanf:"server_url"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	SingleTimeout     time.Duration `koanf:"single_timeout"`
	BatchTimeout      time.Duration `koanf:"batch_timeout"`
	ChunkSize         int           `koanf:"chunk_size"`
	CacheSize         int           `koanf:"cache_size"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.Client.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.Client.RequestsPerMinute < 1 {
		return errors.New("requests per minute must be at least 1")
	}
	if c.Client.ChunkSize < 1 {
		return errors.New("chunk size must be at least 1")
	}
	if c.Client.CacheSize < 1 {
		return errors.New("cache size must be at least 1")
	}
	return nil
}

// GetDefaultResolverConfig returns default configuration for the resolver service
func GetDefaultResolverConfig() *ResolverConfig {
	base := GetDefaults()
	base.Service.Name = "resolver"

	return &ResolverConfig{
		BaseConfig: *base,
		Resolver: ResolverSettings{
			CacheDriver:      CacheDriverDatabase,
			CacheTTL:         DefaultCacheTTL,
			SweepSchedule:    DefaultSweepSchedule,
			DefaultLimit:     DefaultSearchLimit,
			MaxLimit:         MaxSearchLimit,
			BatchConcurrency: DefaultBatchConcurrency,
			MaxBatchItems:    DefaultMaxBatchItems,
		},
		Providers: ProvidersConfig{
			Timeout: DefaultProviderTimeout,
			Retries: 1,
			AniList: ProviderEndpoint{BaseURL: "https://graphql.anilist.co"},
			Jikan: JikanConfig{
				ProviderEndpoint: ProviderEndpoint{BaseURL: "https://api.jikan.moe/v4"},
				Delay:            DefaultJikanDelay,
			},
			TMDB: TMDBConfig{
				ProviderEndpoint: ProviderEndpoint{BaseURL: "https://api.themoviedb.org/3"},
				ImageBaseURL:     "https://image.tmdb.org/t/p",
			},
			OMDb:   ProviderEndpoint{BaseURL: "https://www.omdbapi.com"},
			TVMaze: ProviderEndpoint{BaseURL: "https://api.tvmaze.com"},
		},
		Events: EventsConfig{
			Driver: EventDriverMemory,
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				ClientID:      "mediaresolver",
				MaxReconnect:  10,
				ReconnectWait: 2 * time.Second,
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "catalog.media",
			},
		},
		HTTP: HTTPConfig{
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  90 * time.Second,
			RequestsPerIP: DefaultRequestsPerIP,
		},
	}
}

// GetDefaultClientConfig returns default configuration for mediactl
func GetDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Logger: LoggerConfig{
			Level:      "warn",
			Format:     "console",
			OutputPath: "stderr",
		},
		Client: ClientSettings{
			ServerURL:         fmt.Sprintf("http://localhost:%d", DefaultHTTPPort),
			RequestsPerMinute: DefaultRequestsPerMinute,
			SingleTimeout:     DefaultSingleTimeout,
			BatchTimeout:      DefaultBatchTimeout,
			ChunkSize:         DefaultChunkSize,
			CacheSize:         DefaultImageCacheSize,
			CacheTTL:          DefaultImageCacheTTL,
		},
	}
}
