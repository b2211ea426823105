package readnext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/readnext/internal/db/redis"
	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
	"github.com/kailas-cloud/readnext/internal/domain/text"
	resourcerepo "github.com/kailas-cloud/readnext/internal/repository/resource"
	healthuc "github.com/kailas-cloud/readnext/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/readnext/internal/usecase/recommend"
)

const defaultReadinessTimeout = 10 * time.Second

// Resource is a reading resource as stored by the client.
type Resource struct {
	ID          string
	Title       string
	Description string
	URL         string
	Tags        []string
}

// Recommendation is one ranked result of Recommend.
type Recommendation struct {
	Title       string
	Description string
	URL         string
}

// Internal interfaces for substitution in tests.
type recommendUseCase interface {
	Recommend(ctx context.Context, content string) ([]domres.Recommendation, error)
}

type resourceStore interface {
	Get(ctx context.Context, id string) (domres.Resource, error)
	Upsert(ctx context.Context, res *domres.Resource) (bool, error)
	Count(ctx context.Context) (int, error)
}

type closer interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the readnext library entry point.
type Client struct {
	store        closer
	resources    resourceStore
	embedder     domain.Embedder
	recommendSvc recommendUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a Client, connects to Redis and ensures the resource index.
// The provided context is used for the readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("readnext: database address required (use WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errNoEmbedder
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("readnext: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("readnext: database not ready: %w", err)
	}

	repo := resourcerepo.New(store, resourcerepo.Config{KeyPrefix: cfg.keyPrefix})
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("readnext: ensure index: %w", err)
	}

	c, err := wireClient(store, repo, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store *dbRedis.Store, repo *resourcerepo.Repo, cfg *clientConfig, obs *observer) (*Client, error) {
	strategy, err := recommenduc.ParseStrategy(cfg.strategy)
	if err != nil {
		return nil, fmt.Errorf("readnext: %w", err)
	}

	emb := &embedderAdapter{inner: cfg.embedder}
	svc, err := recommenduc.New(repo, emb, recommenduc.Config{
		Strategy:      strategy,
		Threshold:     cfg.threshold,
		TagThreshold:  cfg.threshold,
		TopK:          cfg.topK,
		MinCandidates: cfg.minCandidates,
		MaxSample:     cfg.maxSample,
		TagTermCap:    10,
		FetchCap:      1000,
	}, zap.NewNop(), recommenduc.WithTagEmbedder(emb))
	if err != nil {
		return nil, fmt.Errorf("readnext: %w", err)
	}

	var healthOpts []healthuc.Option
	if hc, ok := cfg.embedder.(healthuc.ProviderChecker); ok {
		healthOpts = append(healthOpts, healthuc.WithEmbedding(hc))
	}

	return &Client{
		store:        store,
		resources:    repo,
		embedder:     emb,
		recommendSvc: svc,
		healthSvc:    healthuc.New(store, zap.NewNop(), healthOpts...),
		obs:          obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Recommend returns the stored resources most similar to content, best first.
// Blank content fails with ErrEmptyQuery.
func (c *Client) Recommend(ctx context.Context, content string) (_ []Recommendation, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	recs, err := c.recommendSvc.Recommend(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	out := make([]Recommendation, len(recs))
	for i, r := range recs {
		out[i] = Recommendation{Title: r.Title, Description: r.Description, URL: r.URL}
	}
	return out, nil
}

// AddResource embeds a resource's content and tags and stores it.
// Tags merge with those already stored. Returns true if the resource is new.
func (c *Client) AddResource(ctx context.Context, r Resource) (created bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("add_resource", start, err) }()

	res := domres.Resource{
		ID:          strings.TrimSpace(r.ID),
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		URL:         r.URL,
		Tags:        domres.MergeTags(nil, r.Tags),
	}
	if err = res.Validate(0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	texts := []string{res.EmbeddingText()}
	if len(res.Tags) > 0 {
		texts = append(texts, text.JoinTags(res.Tags))
	}
	batch, err := domain.BatchEmbed(ctx, c.embedder, texts)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrEmbeddingServiceError, err)
	}
	if len(batch.Embeddings) != len(texts) {
		return false, fmt.Errorf("%w: got %d vectors for %d texts",
			ErrEmbeddingServiceError, len(batch.Embeddings), len(texts))
	}
	res.Embedding = batch.Embeddings[0]
	if len(texts) > 1 {
		res.TagEmbedding = batch.Embeddings[1]
	}

	created, err = c.resources.Upsert(ctx, &res)
	if err != nil {
		return false, fmt.Errorf("upsert resource: %w", err)
	}
	return created, nil
}

// Resource returns a stored resource by ID.
func (c *Client) Resource(ctx context.Context, id string) (_ Resource, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_resource", start, err) }()

	res, err := c.resources.Get(ctx, id)
	if err != nil {
		return Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return Resource{
		ID:          res.ID,
		Title:       res.Title,
		Description: res.Description,
		URL:         res.URL,
		Tags:        res.Tags,
	}, nil
}

// Count returns the number of stored resources.
func (c *Client) Count(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("count", start, err) }()

	n, err := c.resources.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count resources: %w", err)
	}
	return n, nil
}
