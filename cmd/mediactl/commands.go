package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/client"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		mediaType string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles through the resolver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := domain.ParseType(mediaType)
			if !ok {
				return fmt.Errorf("unknown media type %q", mediaType)
			}
			results, err := a.client.Search(cmd.Context(), args[0], t, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVarP(&mediaType, "type", "t", "", "media type filter (anime, manga, movie, series, kdrama, ...)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid media id: %w", err)
			}
			rec, err := a.client.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newFetchImageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-image <item-id> <title> <type>",
		Short: "Resolve one cover image through the rate limited queue",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id: %w", err)
			}
			queue := client.NewFetchQueue(a.client, a.cache, nil, a.logger, client.FetchQueueOptions{
				RequestsPerMinute: a.cfg.Client.RequestsPerMinute,
				Timeout:           a.cfg.Client.SingleTimeout,
			})
			imageURL, err := queue.FetchImage(cmd.Context(), id, args[1], args[2])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), client.BatchResult{ID: id, ImageURL: imageURL, Source: sourceOf(imageURL)})
		},
	}
}

func newPreloadCmd(a *app) *cobra.Command {
	var itemsPath string
	cmd := &cobra.Command{
		Use:   "preload",
		Short: "Fill missing cover images for every item in a JSON items file",
		Long: "Reads a JSON array of {id, title, type, imageUrl} items, resolves the ones " +
			"without an image through the batch endpoint and writes found URLs back to the file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := OpenItemsFile(itemsPath)
			if err != nil {
				return err
			}
			for _, item := range sink.Items() {
				if item.ImageURL != "" {
					a.cache.Put(item.ID, item.ImageURL)
				}
			}

			fetcher := client.NewBatchFetcher(a.client, a.cache, sink, a.logger, client.BatchFetcherOptions{
				ChunkSize: a.cfg.Client.ChunkSize,
				Timeout:   a.cfg.Client.BatchTimeout,
			})
			out := cmd.ErrOrStderr()
			results, err := fetcher.PreloadAll(cmd.Context(), sink.Pending(), func(p client.Progress) {
				fmt.Fprintf(out, "loaded %d/%d (%.0f%%)\n", p.Loaded, p.Total, p.Percentage)
				// Once per wave keeps partial progress on disk.
				if err := sink.Flush(); err != nil {
					a.logger.Warn("Failed to write items file", interfaces.Error(err))
				}
			})
			if flushErr := sink.Flush(); flushErr != nil && err == nil {
				err = flushErr
			}
			if err != nil {
				return err
			}

			found := 0
			for _, r := range results {
				if r.ImageURL != client.NoImage {
					found++
				}
			}
			fmt.Fprintf(out, "%d of %d items now have an image\n", found, len(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&itemsPath, "items", "f", "items.json", "path of the JSON items file")
	return cmd
}

func sourceOf(imageURL string) string {
	if imageURL == client.NoImage {
		return client.SourceNone
	}
	return "api"
}
