// Command mediactl is a small client for a running resolver.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/mediaresolver/pkg/client"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

// app carries what every subcommand needs.
type app struct {
	cfg    *config.ClientConfig
	logger interfaces.Logger
	client *client.Client
	cache  *client.ImageCache
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var serverURL string

	root := &cobra.Command{
		Use:           "mediactl",
		Short:         "Query a media resolver",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetDefaultClientConfig()
			if err := config.LoadServiceConfig("mediactl", cfg); err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Client.ServerURL = serverURL
			}

			log, err := logger.NewFromConfig(cfg.Logger.ToLoggerConfig())
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}

			a.cfg = cfg
			a.logger = log
			a.client = client.NewClient(cfg.Client.ServerURL, nil)
			a.cache = client.NewImageCache(cfg.Client.CacheSize, cfg.Client.CacheTTL)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "", "resolver base URL (overrides MEDIACTL_CLIENT_SERVER_URL)")

	root.AddCommand(
		newSearchCmd(a),
		newGetCmd(a),
		newFetchImageCmd(a),
		newPreloadCmd(a),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
