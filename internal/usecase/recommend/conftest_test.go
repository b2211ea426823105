package recommend

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/readnext/internal/domain"
	"github.com/kailas-cloud/readnext/internal/domain/resource"
)

// --- Mocks ---

type mockCorpus struct {
	all        []resource.Resource
	byTags     []resource.Resource
	err        error
	gotTags    []string
	gotLimit   int
	fetchCalls int
}

func (m *mockCorpus) FetchAll(_ context.Context) ([]resource.Resource, error) {
	m.fetchCalls++
	return m.all, m.err
}

func (m *mockCorpus) FetchByTags(_ context.Context, tags []string, limit int) ([]resource.Resource, error) {
	m.fetchCalls++
	m.gotTags = tags
	m.gotLimit = limit
	return m.byTags, m.err
}

func (m *mockCorpus) FetchLimited(_ context.Context, limit int) ([]resource.Resource, error) {
	m.fetchCalls++
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.all) > limit {
		return m.all[:limit], nil
	}
	return m.all, nil
}

type mockEmbedder struct {
	mu     sync.Mutex
	vec    []float32
	err    error
	calls  int
	inputs []string
	block  bool
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.inputs = append(m.inputs, text)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", ctx.Err())
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

type mockIndex struct {
	hits         []resource.Scored
	err          error
	gotThreshold float64
	gotTopK      int
}

func (m *mockIndex) Search(_ context.Context, _ []float32, threshold float64, topK int) ([]resource.Scored, error) {
	m.gotThreshold = threshold
	m.gotTopK = topK
	return m.hits, m.err
}

// --- Fixtures ---

func res(id, title, desc string, emb ...float32) resource.Resource {
	return resource.Resource{
		ID:          id,
		Title:       title,
		Description: desc,
		URL:         "https://example.com/" + id,
		Embedding:   emb,
	}
}

func ids(scored []resource.Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.ID
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Strategy:      StrategyKeyword,
		Backend:       BackendStore,
		Threshold:     0.5,
		TagThreshold:  0.5,
		TopK:          5,
		MinCandidates: 5,
		MaxSample:     500,
		TagTermCap:    10,
		FetchCap:      1000,
	}
}
