//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

func InitializeServer(cfg *config.ResolverConfig, zl *logger.ZapLogger) (*Server, func(), error) {
	wire.Build(
		provideLogger,
		provideZap,

		// Persistence
		provideDB,
		provideMediaStore,
		provideQueryCache,

		// Observability and events
		provideRegistry,
		provideMetrics,
		provideEventBus,
		providePublisher,

		// Search pipeline
		provideProviderSet,
		provideResolver,
		wire.Bind(new(service.ResolverInterface), new(*service.Resolver)),
		provideSweeper,

		// HTTP
		provideRouter,
		newServer,
	)

	return nil, nil, nil
}
