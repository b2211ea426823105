package recommend

import (
	"context"

	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
)

// Corpus reads candidate resources from the store.
type Corpus interface {
	FetchAll(ctx context.Context) ([]domres.Resource, error)
	FetchByTags(ctx context.Context, tags []string, limit int) ([]domres.Resource, error)
	FetchLimited(ctx context.Context, limit int) ([]domres.Resource, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex answers nearest-neighbour queries against a remote index.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, threshold float64, topK int) ([]domres.Scored, error)
}
