package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/transport/googlebooks"
	"github.com/kailas-cloud/readnext/internal/usecase/ingest"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var (
		topics      []string
		perTopic    int
		limit       int
		batchSize   int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Seed the resource corpus from the Google Books catalog",
		Long: `Fetch volumes per topic from Google Books, embed their title and
description (and their tags), and upsert them by volume ID. Tags of
volumes already stored are merged, never replaced. When vector_index is
enabled the same resources are mirrored into Qdrant.

Example:
  readnext ingest --topics history,philosophy --per-topic 10 --limit 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			catalog := googlebooks.NewClient(googlebooks.Config{
				BaseURL: cfg.Catalog.BaseURL,
				APIKey:  cfg.Catalog.APIKey,
				Timeout: time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
				RPS:     cfg.Catalog.RPS,
			})

			var mirror ingest.IndexWriter
			if a.index != nil {
				mirror = a.index
			}
			svc := ingest.New(catalog, a.resources, a.embedder, a.embedder, mirror, logger).
				WithBatchSize(batchSize).
				WithConcurrency(concurrency)

			start := time.Now()
			rep, err := svc.Run(ctx, ingest.Request{Topics: topics, PerTopic: perTopic, Limit: limit})
			logger.Info("Ingestion finished",
				zap.Int("fetched", rep.Fetched),
				zap.Int("created", rep.Created),
				zap.Int("updated", rep.Updated),
				zap.Int("mirrored", rep.Mirrored),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d resources (%d new, %d updated)\n",
				rep.Fetched, rep.Created, rep.Updated)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&topics, "topics", ingest.DefaultTopics, "Catalog topics to fetch")
	cmd.Flags().IntVar(&perTopic, "per-topic", 10, "Volumes fetched per topic (max 40)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Total resources to ingest, 0 for no cap")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "Resources per embedding call")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Batches embedded in parallel")
	return cmd
}
