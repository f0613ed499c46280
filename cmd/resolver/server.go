package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/events"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
)

// Server owns the listeners and background jobs of the resolver process.
type Server struct {
	cfg     *config.ResolverConfig
	api     *http.Server
	metrics *http.Server
	bus     *events.InMemoryEventBus
	sweeper *service.CacheSweeper
	logger  interfaces.Logger
}

func newServer(
	cfg *config.ResolverConfig,
	router http.Handler,
	reg *prometheus.Registry,
	bus *events.InMemoryEventBus,
	sweeper *service.CacheSweeper,
	log interfaces.Logger,
) *Server {
	s := &Server{
		cfg: cfg,
		api: &http.Server{
			Addr:         config.GetListenAddress(&cfg.Service),
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		bus:     bus,
		sweeper: sweeper,
		logger:  log,
	}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
		s.metrics = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
	}
	return s
}

// Run serves until ctx is canceled, then shuts down within the configured
// timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	if s.sweeper != nil {
		s.sweeper.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server starting", interfaces.String("address", s.api.Addr))
		return serve(s.api)
	})
	if s.metrics != nil {
		g.Go(func() error {
			s.logger.Info("Metrics server starting", interfaces.String("address", s.metrics.Addr))
			return serve(s.metrics)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Service.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.api.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	if s.sweeper != nil {
		s.sweeper.Stop(ctx)
	}
	return errors.Join(errs...)
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}
