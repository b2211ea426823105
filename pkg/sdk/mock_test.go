package readnext

import (
	"context"

	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
	healthuc "github.com/kailas-cloud/readnext/internal/usecase/health"
)

// --- recommendUseCase mock ---

type mockRecommendUC struct {
	fn func(ctx context.Context, content string) ([]domres.Recommendation, error)
}

func (m *mockRecommendUC) Recommend(ctx context.Context, content string) ([]domres.Recommendation, error) {
	return m.fn(ctx, content)
}

// --- resourceStore mock ---

type mockResources struct {
	getFn    func(ctx context.Context, id string) (domres.Resource, error)
	upsertFn func(ctx context.Context, res *domres.Resource) (bool, error)
	countFn  func(ctx context.Context) (int, error)
}

func (m *mockResources) Get(ctx context.Context, id string) (domres.Resource, error) {
	return m.getFn(ctx, id)
}

func (m *mockResources) Upsert(ctx context.Context, res *domres.Resource) (bool, error) {
	return m.upsertFn(ctx, res)
}

func (m *mockResources) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

// --- store mock ---

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
func (m *mockStore) Close()                     { m.closed = true }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}
