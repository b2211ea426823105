package ingest

import (
	"context"

	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
)

// Catalog finds resources about a topic in an external catalog.
type Catalog interface {
	Resources(ctx context.Context, topic string, maxResults int) ([]domres.Resource, error)
}

// ResourceWriter persists resources, merging tags on re-ingestion.
type ResourceWriter interface {
	Upsert(ctx context.Context, res *domres.Resource) (bool, error)
}

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// IndexWriter mirrors resources into a remote vector index.
type IndexWriter interface {
	Upsert(ctx context.Context, resources []domres.Resource) (int, error)
}
