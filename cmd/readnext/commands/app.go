package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/config"
	dbRedis "github.com/kailas-cloud/readnext/internal/db/redis"
	"github.com/kailas-cloud/readnext/internal/domain"
	"github.com/kailas-cloud/readnext/internal/metrics"
	"github.com/kailas-cloud/readnext/internal/repository/embcache"
	resourcerepo "github.com/kailas-cloud/readnext/internal/repository/resource"
	openaiEmb "github.com/kailas-cloud/readnext/internal/transport/openai"
	qdrantIdx "github.com/kailas-cloud/readnext/internal/transport/qdrant"
	embeddinguc "github.com/kailas-cloud/readnext/internal/usecase/embedding"
)

// app owns the long-lived collaborators shared by serve and ingest.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *dbRedis.Store
	resources *resourcerepo.Repo
	provider  *openaiEmb.Embedder
	embedder  domain.Embedder
	index     *qdrantIdx.Index // nil unless vector_index.enabled
}

// newApp connects to the store, prepares the resource index and builds the
// embedder chain. The caller must call close.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.Register()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: store}

	readyTimeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readyTimeout); err != nil {
		a.close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	a.resources = resourcerepo.New(store, resourcerepo.Config{
		KeyPrefix: cfg.Corpus.KeyPrefix,
		MaxScan:   cfg.Corpus.MaxScan,
		TagCap:    cfg.Recommend.TagTermCap,
	})
	if err := a.resources.EnsureIndex(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("ensure resource index: %w", err)
	}

	a.provider, a.embedder = buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	if cfg.VectorIndex.Enabled {
		idx, err := qdrantIdx.New(qdrantIdx.Config{
			Host:       cfg.VectorIndex.Host,
			Port:       cfg.VectorIndex.Port,
			Collection: cfg.VectorIndex.Collection,
			VectorSize: uint64(cfg.Embedding.Dimensions), //nolint:gosec // validated positive
			APIKey:     cfg.VectorIndex.APIKey,
			UseTLS:     cfg.VectorIndex.UseTLS,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create vector index: %w", err)
		}
		a.index = idx
		if err := idx.EnsureCollection(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("ensure vector collection: %w", err)
		}
		logger.Info("Vector index ready",
			zap.String("host", cfg.VectorIndex.Host),
			zap.String("collection", cfg.VectorIndex.Collection),
		)
	}
	return a, nil
}

func (a *app) close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("Close vector index", zap.Error(err))
		}
	}
	a.store.Close()
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The provider is returned separately for health checks.
func buildEmbedder(cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) (*openaiEmb.Embedder, domain.Embedder) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Cache.Enabled {
		embedder = embcache.New(base, store, embcache.Options{
			Namespace: fmt.Sprintf("%s/%d", cfg.Model, cfg.Dimensions),
			TTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return base, embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger).
		WithMaxBatchSize(cfg.MaxBatchSize)
}
