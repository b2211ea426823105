// Package recommend turns a free-text note into a short list of reading
// resources: cheap lexical narrowing, one embedding call, cosine ranking.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/domain"
	"github.com/kailas-cloud/readnext/internal/domain/resource"
	"github.com/kailas-cloud/readnext/internal/domain/text"
	"github.com/kailas-cloud/readnext/internal/metrics"
)

// Backend selects where candidates are ranked.
type Backend string

const (
	// BackendStore ranks in-process over candidates read from the store.
	BackendStore Backend = "store"
	// BackendQdrant delegates nearest-neighbour search to a Qdrant collection.
	BackendQdrant Backend = "qdrant"
)

// Config holds pipeline tuning.
type Config struct {
	Strategy          Strategy
	Backend           Backend
	Threshold         float64 // 0 means DefaultThreshold; use a negative value to accept all
	TagThreshold      float64 // 0 means DefaultThreshold
	TopK              int
	MinCandidates     int
	MaxSample         int
	TagTermCap        int
	FetchCap          int
	DescriptionWords  int
	GateAfterSampling bool
	Timeout           time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithTagEmbedder sets the embedder used for keyword tag vectors.
func WithTagEmbedder(e Embedder) Option {
	return func(s *Service) { s.tagEmbed = e }
}

// WithVectorIndex sets the remote index used by BackendQdrant.
func WithVectorIndex(idx VectorIndex) Option {
	return func(s *Service) { s.index = idx }
}

// WithSampler replaces the default uniform sampler.
func WithSampler(sm Sampler) Option {
	return func(s *Service) { s.sampler = sm }
}

// WithRanker replaces the default ranker.
func WithRanker(r *Ranker) Option {
	return func(s *Service) { s.ranker = r }
}

// Service runs the recommendation pipeline. It holds no per-request state.
type Service struct {
	corpus   Corpus
	embed    Embedder
	tagEmbed Embedder
	index    VectorIndex
	sampler  Sampler
	ranker   *Ranker
	cfg      Config
	logger   *zap.Logger
}

// New creates a recommendation service.
func New(corpus Corpus, embed Embedder, cfg Config, log *zap.Logger, opts ...Option) (*Service, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyKeyword
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendStore
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = DefaultMinCandidates
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.TagThreshold == 0 {
		cfg.TagThreshold = DefaultThreshold
	}
	if cfg.DescriptionWords <= 0 {
		cfg.DescriptionWords = text.DefaultMaxWords
	}

	s := &Service{
		corpus:  corpus,
		embed:   embed,
		sampler: NewUniformSampler(),
		ranker:  NewRanker(0, 0),
		cfg:     cfg,
		logger:  log,
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	if s.embed == nil {
		return nil, errors.New("recommend: embedder is required")
	}
	switch cfg.Backend {
	case BackendStore:
		if s.corpus == nil {
			return nil, errors.New("recommend: corpus is required for the store backend")
		}
		if cfg.Strategy == StrategyTagEmbedding && s.tagEmbed == nil {
			return nil, errors.New("recommend: tag_embedding strategy requires a tag embedder")
		}
	case BackendQdrant:
		if s.index == nil {
			return nil, errors.New("recommend: qdrant backend requires a vector index")
		}
	default:
		return nil, fmt.Errorf("recommend: unknown backend %q", cfg.Backend)
	}
	return s, nil
}

// Recommend returns at most TopK recommendations for content, best first.
// Blank content fails with domain.ErrEmptyQuery. Too little lexical signal
// yields an empty list without calling the embedding provider.
func (s *Service) Recommend(ctx context.Context, content string) ([]resource.Recommendation, error) {
	start := time.Now()
	label := s.label()
	defer func() {
		metrics.RecommendDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	content = strings.TrimSpace(content)
	if content == "" {
		s.count(metrics.OutcomeEmptyQuery)
		return nil, domain.ErrEmptyQuery
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	keywords := text.ExtractKeywords(content)
	st := &run{
		log: s.logger.With(
			zap.String("strategy", label),
			zap.Int("query_len", len(content)),
			zap.Int("keywords", len(keywords)),
		),
	}

	if len(keywords) == 0 && (s.cfg.Backend == BackendQdrant || s.cfg.Strategy.needsKeywords()) {
		s.count(metrics.OutcomeNoKeywords)
		st.log.Debug("No lexical signal")
		return []resource.Recommendation{}, nil
	}

	var scored []resource.Scored
	var err error
	if s.cfg.Backend == BackendQdrant {
		scored, err = s.searchIndex(ctx, st, content)
	} else {
		scored, err = s.searchCorpus(ctx, st, content, keywords)
	}
	if err != nil {
		err = classify(err)
		s.count(metrics.OutcomeError)
		st.log.Error("Recommendation failed", zap.String("stage", st.stage), zap.Error(err))
		return nil, err
	}
	if st.insufficient {
		s.count(metrics.OutcomeInsufficient)
		return []resource.Recommendation{}, nil
	}

	out := make([]resource.Recommendation, len(scored))
	for i := range scored {
		out[i] = resource.ToRecommendation(scored[i], s.cfg.DescriptionWords)
	}
	s.count(metrics.OutcomeOK)
	st.log.Debug("Recommendation completed", zap.Int("results", len(out)), zap.Duration("duration", time.Since(start)))
	return out, nil
}

// run carries per-request diagnostics through the pipeline stages.
type run struct {
	log          *zap.Logger
	stage        string
	insufficient bool
}

func (s *Service) searchCorpus(
	ctx context.Context, r *run, content string, keywords []string,
) ([]resource.Scored, error) {
	r.stage = "filter"
	candidates, err := s.candidates(ctx, r, keywords)
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}
	if r.insufficient {
		return nil, nil
	}
	metrics.RecommendCandidates.WithLabelValues(s.label()).Observe(float64(len(candidates)))

	if !s.cfg.GateAfterSampling && s.belowGate(r, len(candidates)) {
		return nil, nil
	}

	r.stage = "sample"
	sampled := s.sampler.Sample(candidates, s.cfg.MaxSample)
	if s.cfg.GateAfterSampling && s.belowGate(r, len(sampled)) {
		return nil, nil
	}

	r.stage = "embed"
	query, err := s.embedQuery(ctx, content)
	if err != nil {
		return nil, err
	}

	r.stage = "rank"
	scored, err := s.ranker.Rank(ctx, sampled, query, s.cfg.Threshold, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	r.log.Debug("Ranked candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("sampled", len(sampled)),
		zap.Int("results", len(scored)),
	)
	return scored, nil
}

func (s *Service) searchIndex(ctx context.Context, r *run, content string) ([]resource.Scored, error) {
	r.stage = "embed"
	query, err := s.embedQuery(ctx, content)
	if err != nil {
		return nil, err
	}

	r.stage = "index"
	hits, err := s.index.Search(ctx, query, s.cfg.Threshold, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector index search: %w", err)
	}
	return selectTop(hits, s.cfg.Threshold, s.cfg.TopK), nil
}

// candidates runs the configured filter strategy.
func (s *Service) candidates(ctx context.Context, r *run, keywords []string) ([]resource.Resource, error) {
	switch s.cfg.Strategy {
	case StrategyKeyword:
		all, err := s.corpus.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch all: %w", err)
		}
		return FilterByKeywords(all, keywords), nil

	case StrategyTagQuery:
		tags := text.Tags(keywords, s.cfg.TagTermCap)
		res, err := s.corpus.FetchByTags(ctx, tags, s.cfg.FetchCap)
		if err != nil {
			return nil, fmt.Errorf("fetch by tags: %w", err)
		}
		return res, nil

	case StrategyTagEmbedding:
		all, err := s.corpus.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch all: %w", err)
		}
		indexed := withTagEmbedding(all)
		// Not enough tagged resources to ever pass the gate: skip the tag embedding too.
		if s.belowGate(r, len(indexed)) {
			return nil, nil
		}
		tagVec, err := s.tagEmbed.Embed(ctx, text.JoinTags(text.Tags(keywords, s.cfg.TagTermCap)))
		if err != nil {
			return nil, fmt.Errorf("embed tags: %w", err)
		}
		res, err := FilterByTagEmbedding(indexed, tagVec.Embedding, s.cfg.TagThreshold)
		if err != nil {
			return nil, err
		}
		return res, nil

	case StrategyNone:
		res, err := s.corpus.FetchLimited(ctx, s.cfg.FetchCap)
		if err != nil {
			return nil, fmt.Errorf("fetch limited: %w", err)
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unknown filter strategy %q", s.cfg.Strategy)
	}
}

// belowGate reports whether n candidates are too few to embed for.
// An empty set is always below the gate.
func (s *Service) belowGate(r *run, n int) bool {
	if n > 0 && n >= s.cfg.MinCandidates {
		return false
	}
	r.insufficient = true
	r.log.Debug("Too few candidates", zap.Int("candidates", n), zap.Int("min", s.cfg.MinCandidates))
	return true
}

func (s *Service) embedQuery(ctx context.Context, content string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed query: empty vector: %w", domain.ErrEmbeddingServiceError)
	}
	return res.Embedding, nil
}

func (s *Service) label() string {
	if s.cfg.Backend == BackendQdrant {
		return string(BackendQdrant)
	}
	return string(s.cfg.Strategy)
}

func (s *Service) count(outcome string) {
	metrics.RecommendationsTotal.WithLabelValues(s.label(), outcome).Inc()
}

// classify marks deadline expiry as domain.ErrTimeout.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
