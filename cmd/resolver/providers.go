package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/handler"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/provider"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/internal/infrastructure/events/kafka"
	"github.com/narwhalmedia/mediaresolver/internal/infrastructure/events/nats"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/database"
	"github.com/narwhalmedia/mediaresolver/pkg/events"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

const (
	memoryCacheJanitor = 10 * time.Minute
	brokerDialTimeout  = 10 * time.Second
)

func provideLogger(l *logger.ZapLogger) interfaces.Logger {
	return l
}

func provideZap(l *logger.ZapLogger) *zap.Logger {
	return l.Zap()
}

func provideDB(cfg *config.ResolverConfig, log interfaces.Logger) (*gorm.DB, func(), error) {
	db, cleanup, err := database.NewGormDB(cfg.Database.ToDatabaseConfig(cfg.Logger.Development), log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(db, log); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, cleanup, nil
}

func provideMediaStore(db *gorm.DB) repository.MediaStore {
	return repository.NewGormMediaStore(db)
}

func provideQueryCache(cfg *config.ResolverConfig, db *gorm.DB, log interfaces.Logger) (repository.QueryCache, func(), error) {
	switch cfg.Resolver.CacheDriver {
	case config.CacheDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		ctx, cancel := context.WithTimeout(context.Background(), brokerDialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Query cache backed by redis", interfaces.String("address", cfg.Redis.Address()))
		return repository.NewRedisQueryCache(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil

	case config.CacheDriverMemory:
		cache := repository.NewMemoryQueryCache(memoryCacheJanitor, nil)
		log.Info("Query cache kept in memory")
		return cache, cache.Close, nil

	default:
		return repository.NewGormQueryCache(db), func() {}, nil
	}
}

func provideProviderSet(cfg *config.ResolverConfig, log interfaces.Logger) *provider.Set {
	return provider.NewSet(cfg.Providers, log)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// provideEventBus builds the in-process bus, subscribes the metrics handler
// and, for the nats and kafka drivers, a forwarder to the broker.
func provideEventBus(cfg *config.ResolverConfig, log interfaces.Logger, zl *zap.Logger, m *metrics.Metrics) (*events.InMemoryEventBus, func(), error) {
	bus := events.NewInMemoryEventBus(log)
	if err := bus.Subscribe(domain.EventMediaResolved, service.NewResolvedMetricsHandler(m)); err != nil {
		return nil, nil, err
	}

	closeBroker := func() {}
	switch cfg.Events.Driver {
	case config.EventDriverNATS:
		ctx, cancel := context.WithTimeout(context.Background(), brokerDialTimeout)
		defer cancel()
		client, cleanup, err := nats.NewClient(ctx, cfg.Events.NATS, zl)
		if err != nil {
			return nil, nil, err
		}
		closeBroker = cleanup
		if err := bus.Subscribe(domain.EventMediaResolved, events.Forwarder(domain.EventMediaResolved, nats.NewPublisher(client, zl))); err != nil {
			cleanup()
			return nil, nil, err
		}

	case config.EventDriverKafka:
		publisher, err := kafka.NewPublisher(cfg.Events.Kafka)
		if err != nil {
			return nil, nil, err
		}
		closeBroker = func() {
			if err := publisher.Close(); err != nil {
				log.Error("Failed to close kafka producer", interfaces.Error(err))
			}
		}
		if err := bus.Subscribe(domain.EventMediaResolved, events.Forwarder(domain.EventMediaResolved, publisher)); err != nil {
			closeBroker()
			return nil, nil, err
		}
	}

	cleanup := func() {
		_ = bus.Stop()
		closeBroker()
	}
	return bus, cleanup, nil
}

func providePublisher(bus *events.InMemoryEventBus) interfaces.EventPublisher {
	return events.Async(bus)
}

func provideResolver(
	cfg *config.ResolverConfig,
	store repository.MediaStore,
	cache repository.QueryCache,
	set *provider.Set,
	publisher interfaces.EventPublisher,
	m *metrics.Metrics,
	log interfaces.Logger,
) *service.Resolver {
	return service.NewResolver(store, cache, service.DefaultFamilies(set), publisher, m, log, service.Options{
		CacheTTL:         cfg.Resolver.CacheTTL,
		MaxLimit:         cfg.Resolver.MaxLimit,
		BatchConcurrency: cfg.Resolver.BatchConcurrency,
	})
}

// provideSweeper returns nil when the sweep schedule is empty.
func provideSweeper(cfg *config.ResolverConfig, cache repository.QueryCache, m *metrics.Metrics, log interfaces.Logger) (*service.CacheSweeper, error) {
	if cfg.Resolver.SweepSchedule == "" {
		return nil, nil
	}
	return service.NewCacheSweeper(cache, cfg.Resolver.SweepSchedule, m, log)
}

func provideRouter(cfg *config.ResolverConfig, resolver service.ResolverInterface, m *metrics.Metrics, log interfaces.Logger) http.Handler {
	h := handler.NewHTTPHandler(resolver, log, cfg.Resolver.DefaultLimit, cfg.Resolver.MaxBatchItems)
	return handler.NewRouter(h, m, log, handler.RouterConfig{RequestsPerIP: cfg.HTTP.RequestsPerIP})
}
