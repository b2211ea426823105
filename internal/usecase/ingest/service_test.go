package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
)

// --- Mocks ---

type mockCatalog struct {
	byTopic map[string][]domres.Resource
	err     error
	topics  []string
}

func (m *mockCatalog) Resources(_ context.Context, topic string, n int) ([]domres.Resource, error) {
	m.topics = append(m.topics, topic)
	if m.err != nil {
		return nil, m.err
	}
	found := m.byTopic[topic]
	if len(found) > n {
		found = found[:n]
	}
	out := make([]domres.Resource, len(found))
	copy(out, found)
	return out, nil
}

type mockRepo struct {
	mu       sync.Mutex
	stored   map[string]domres.Resource
	existing map[string]bool
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{stored: map[string]domres.Resource{}, existing: map[string]bool{}}
}

func (m *mockRepo) Upsert(_ context.Context, r *domres.Resource) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.stored[r.ID] = *r
	return !m.existing[r.ID], nil
}

// mockEmbedder returns a vector whose first element is the text length.
type mockEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

type mockIndex struct {
	mu    sync.Mutex
	count int
}

func (m *mockIndex) Upsert(_ context.Context, rs []domres.Resource) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count += len(rs)
	return len(rs), nil
}

func book(id, title string, tags ...string) domres.Resource {
	return domres.Resource{ID: id, Title: title, Description: "about " + title, Tags: tags}
}

// --- Tests ---

func TestRun_EmbedsAndStores(t *testing.T) {
	cat := &mockCatalog{byTopic: map[string][]domres.Resource{
		"history":    {book("h1", "Rome", "history"), book("h2", "Greece", "history")},
		"philosophy": {book("p1", "Stoics", "philosophy")},
	}}
	repo := newMockRepo()
	repo.existing["h2"] = true
	emb := &mockEmbedder{}
	tagEmb := &mockEmbedder{}
	idx := &mockIndex{}

	svc := New(cat, repo, emb, tagEmb, idx, nil).WithBatchSize(2)
	rep, err := svc.Run(context.Background(), Request{Topics: []string{"History", "philosophy"}, PerTopic: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.Fetched != 3 || rep.Created != 2 || rep.Updated != 1 || rep.Mirrored != 3 {
		t.Errorf("unexpected report %+v", rep)
	}
	r := repo.stored["h1"]
	if len(r.Embedding) == 0 || len(r.TagEmbedding) == 0 {
		t.Fatalf("expected both embeddings on %+v", r)
	}
	if int(r.Embedding[0]) != len("Rome. about Rome") {
		t.Errorf("content embedding not built from title and description")
	}
	if int(r.TagEmbedding[0]) != len("history") {
		t.Errorf("tag embedding not built from joined tags")
	}
	if cat.topics[0] != "history" {
		t.Errorf("expected normalized topic, got %q", cat.topics[0])
	}
}

func TestRun_MergesTagsAcrossTopics(t *testing.T) {
	cat := &mockCatalog{byTopic: map[string][]domres.Resource{
		"history":    {book("x", "Republic", "history")},
		"philosophy": {book("x", "Republic", "philosophy")},
	}}
	repo := newMockRepo()

	rep, err := New(cat, repo, &mockEmbedder{}, nil, nil, nil).
		Run(context.Background(), Request{Topics: []string{"history", "philosophy"}, PerTopic: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Fetched != 1 {
		t.Errorf("expected duplicate volume to be collapsed, got %d", rep.Fetched)
	}
	if got := strings.Join(repo.stored["x"].Tags, ","); got != "history,philosophy" {
		t.Errorf("expected merged tags, got %s", got)
	}
	if len(repo.stored["x"].TagEmbedding) != 0 {
		t.Error("no tag embedder configured, tag embedding must stay empty")
	}
}

func TestRun_Limit(t *testing.T) {
	var many []domres.Resource
	for i := range 8 {
		many = append(many, book(fmt.Sprintf("b%d", i), "Book"))
	}
	cat := &mockCatalog{byTopic: map[string][]domres.Resource{"science": many}}
	repo := newMockRepo()

	rep, err := New(cat, repo, &mockEmbedder{}, nil, nil, nil).
		Run(context.Background(), Request{Topics: []string{"science"}, PerTopic: 8, Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Fetched != 5 || len(repo.stored) != 5 {
		t.Errorf("expected 5 resources, got fetched=%d stored=%d", rep.Fetched, len(repo.stored))
	}
}

func TestRun_DefaultTopics(t *testing.T) {
	cat := &mockCatalog{}
	if _, err := New(cat, newMockRepo(), &mockEmbedder{}, nil, nil, nil).
		Run(context.Background(), Request{PerTopic: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(cat.topics, ",") != strings.Join(DefaultTopics, ",") {
		t.Errorf("expected default topics, got %v", cat.topics)
	}
}

func TestRun_InvalidPerTopic(t *testing.T) {
	_, err := New(&mockCatalog{}, newMockRepo(), &mockEmbedder{}, nil, nil, nil).
		Run(context.Background(), Request{})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRun_CatalogError(t *testing.T) {
	cat := &mockCatalog{err: errors.New("quota")}
	_, err := New(cat, newMockRepo(), &mockEmbedder{}, nil, nil, nil).
		Run(context.Background(), Request{Topics: []string{"go"}, PerTopic: 1})
	if err == nil || !strings.Contains(err.Error(), "go") {
		t.Errorf("expected topic error, got %v", err)
	}
}

func TestRun_EmbeddingErrorStopsBeforeStore(t *testing.T) {
	cat := &mockCatalog{byTopic: map[string][]domres.Resource{"go": {book("g", "Go")}}}
	repo := newMockRepo()
	emb := &mockEmbedder{err: domain.ErrEmbeddingServiceError}

	_, err := New(cat, repo, emb, nil, nil, nil).
		Run(context.Background(), Request{Topics: []string{"go"}, PerTopic: 1})
	if !errors.Is(err, domain.ErrEmbeddingServiceError) {
		t.Errorf("expected ErrEmbeddingServiceError, got %v", err)
	}
	if len(repo.stored) != 0 {
		t.Error("nothing should be stored without embeddings")
	}
}

func TestRun_StoreError(t *testing.T) {
	cat := &mockCatalog{byTopic: map[string][]domres.Resource{"go": {book("g", "Go")}}}
	repo := newMockRepo()
	repo.err = domain.ErrStoreUnavailable

	_, err := New(cat, repo, &mockEmbedder{}, nil, nil, nil).
		Run(context.Background(), Request{Topics: []string{"go"}, PerTopic: 1})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
