package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoadServiceConfig("resolver", config.GetDefaultResolverConfig())

	// Initialize logger
	log, err := logger.NewFromConfig(cfg.Logger.ToLoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Media resolver starting",
		interfaces.String("version", config.GetServiceVersion(&cfg.Service)),
		interfaces.String("environment", cfg.Service.Environment),
		interfaces.String("cache_driver", cfg.Resolver.CacheDriver),
		interfaces.String("event_driver", cfg.Events.Driver))

	server, cleanup, err := InitializeServer(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize resolver", interfaces.Error(err))
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Error("Resolver stopped with error", interfaces.Error(err))
		return
	}
	log.Info("Media resolver stopped")
}
