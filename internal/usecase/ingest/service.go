// Package ingest seeds the resource corpus from an external catalog.
package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
	"github.com/kailas-cloud/readnext/internal/domain/text"
)

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// DefaultTopics are seeded when none are given.
var DefaultTopics = []string{"javascript", "history", "philosophy", "psychology", "science"}

// Request selects what to ingest.
type Request struct {
	Topics   []string
	PerTopic int
	// Limit caps the total number of resources; <= 0 means no cap.
	Limit int
}

// Report summarizes an ingestion run.
type Report struct {
	Fetched  int
	Created  int
	Updated  int
	Mirrored int
}

// Service fetches, embeds and stores catalog resources.
type Service struct {
	catalog     Catalog
	repo        ResourceWriter
	embed       Embedder
	tagEmbed    Embedder
	index       IndexWriter
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// New creates an ingestion service. tagEmbed and index may be nil.
func New(catalog Catalog, repo ResourceWriter, embed, tagEmbed Embedder, index IndexWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:     catalog,
		repo:        repo,
		embed:       embed,
		tagEmbed:    tagEmbed,
		index:       index,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
}

// WithBatchSize sets how many resources share one embedding call.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithConcurrency bounds the number of batches in flight.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Run fetches every topic, embeds the resources in batches and upserts them.
// The first failing batch cancels the rest; resources already written stay.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	if req.PerTopic <= 0 {
		return Report{}, fmt.Errorf("per-topic must be positive: %w", domain.ErrInvalidArgument)
	}
	topics := req.Topics
	if len(topics) == 0 {
		topics = DefaultTopics
	}

	resources, err := s.fetch(ctx, topics, req.PerTopic, req.Limit)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Fetched: len(resources)}
	if len(resources) == 0 {
		return rep, nil
	}

	var created, updated, mirrored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(resources); start += s.batchSize {
		batch := resources[start:min(start+s.batchSize, len(resources))]
		g.Go(func() error {
			if err := s.embedBatch(gctx, batch); err != nil {
				return err
			}
			for i := range batch {
				isNew, err := s.repo.Upsert(gctx, &batch[i])
				if err != nil {
					return fmt.Errorf("upsert %s: %w", batch[i].ID, err)
				}
				if isNew {
					created.Add(1)
				} else {
					updated.Add(1)
				}
			}
			if s.index != nil {
				n, err := s.index.Upsert(gctx, batch)
				if err != nil {
					return fmt.Errorf("mirror batch: %w", err)
				}
				mirrored.Add(int64(n))
			}
			s.logger.Info("Batch ingested", zap.Int("size", len(batch)))
			return nil
		})
	}
	err = g.Wait()

	rep.Created = int(created.Load())
	rep.Updated = int(updated.Load())
	rep.Mirrored = int(mirrored.Load())
	if err != nil {
		return rep, err //nolint:wrapcheck // batch errors are already wrapped
	}
	return rep, nil
}

// fetch collects resources per topic in order, merging tags of volumes found
// under several topics, and stops at limit.
func (s *Service) fetch(ctx context.Context, topics []string, perTopic, limit int) ([]domres.Resource, error) {
	var out []domres.Resource
	pos := make(map[string]int)
	for _, topic := range topics {
		topic = text.NormalizeTag(topic)
		if topic == "" {
			continue
		}
		found, err := s.catalog.Resources(ctx, topic, perTopic)
		if err != nil {
			return nil, fmt.Errorf("fetch topic %q: %w", topic, err)
		}
		s.logger.Info("Fetched topic", zap.String("topic", topic), zap.Int("count", len(found)))
		for _, r := range found {
			if i, ok := pos[r.ID]; ok {
				out[i].Tags = domres.MergeTags(out[i].Tags, r.Tags)
				continue
			}
			if limit > 0 && len(out) >= limit {
				continue
			}
			if err := r.Validate(0); err != nil {
				s.logger.Warn("Skipping catalog entry", zap.Error(err))
				continue
			}
			pos[r.ID] = len(out)
			out = append(out, r)
		}
	}
	return out, nil
}

// embedBatch fills Embedding and, when a tag embedder is set, TagEmbedding.
func (s *Service) embedBatch(ctx context.Context, batch []domres.Resource) error {
	contents := make([]string, len(batch))
	tags := make([]string, len(batch))
	for i := range batch {
		contents[i] = batch[i].EmbeddingText()
		tags[i] = text.JoinTags(batch[i].Tags)
	}

	res, err := domain.BatchEmbed(ctx, s.embed, contents)
	if err != nil {
		return fmt.Errorf("embed contents: %w", err)
	}
	if len(res.Embeddings) != len(batch) {
		return fmt.Errorf("embed contents: got %d vectors for %d texts: %w",
			len(res.Embeddings), len(batch), domain.ErrEmbeddingServiceError)
	}
	for i := range batch {
		batch[i].Embedding = res.Embeddings[i]
	}

	if s.tagEmbed == nil {
		return nil
	}
	tres, err := domain.BatchEmbed(ctx, s.tagEmbed, tags)
	if err != nil {
		return fmt.Errorf("embed tags: %w", err)
	}
	if len(tres.Embeddings) != len(batch) {
		return fmt.Errorf("embed tags: got %d vectors for %d texts: %w",
			len(tres.Embeddings), len(batch), domain.ErrEmbeddingServiceError)
	}
	for i := range batch {
		batch[i].TagEmbedding = tres.Embeddings[i]
	}
	return nil
}
