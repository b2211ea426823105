// Package qdrant is the remote vector-index backend: resources are mirrored
// into a Qdrant collection and recommendations become a single KNN query.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
)

// Payload keys.
const (
	payloadID          = "resource_id"
	payloadTitle       = "title"
	payloadDescription = "description"
	payloadURL         = "url"
	payloadTags        = "tags"
)

// pointNamespace derives stable point UUIDs from resource IDs, which are not UUIDs themselves.
var pointNamespace = uuid.MustParse("6f1c2a8e-3d4b-4e55-9a77-1b2c3d4e5f60")

// Config holds connection parameters for the Qdrant gRPC API.
type Config struct {
	Host       string
	Port       int
	Collection string
	VectorSize uint64
	APIKey     string
	UseTLS     bool
}

// Index wraps a Qdrant collection holding resource vectors.
type Index struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
}

// New connects to Qdrant. The collection is not touched until EnsureCollection.
func New(cfg Config) (*Index, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: create client: %w", err)
	}

	return &Index{client: client, collection: cfg.Collection, vectorSize: cfg.VectorSize}, nil
}

// EnsureCollection creates the cosine-distance collection if it is missing.
func (i *Index) EnsureCollection(ctx context.Context) error {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("qdrant: check collection: %w: %w", domain.ErrVectorIndexError, err)
	}
	if exists {
		return nil
	}
	if i.vectorSize == 0 {
		return fmt.Errorf("qdrant: vector size is required to create %q: %w", i.collection, domain.ErrInvalidArgument)
	}

	err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     i.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %q: %w: %w", i.collection, domain.ErrVectorIndexError, err)
	}
	return nil
}

// Upsert writes resources with their content embeddings. Resources without an
// embedding are skipped.
func (i *Index) Upsert(ctx context.Context, resources []domres.Resource) (int, error) {
	points := make([]*qdrant.PointStruct, 0, len(resources))
	for idx := range resources {
		if p := toPoint(&resources[idx]); p != nil {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return 0, nil
	}

	wait := true
	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: upsert: %w: %w", domain.ErrVectorIndexError, err)
	}
	return len(points), nil
}

// Search runs a KNN query bounded by threshold and topK.
func (i *Index) Search(ctx context.Context, query []float32, threshold float64, topK int) ([]domres.Scored, error) {
	if topK <= 0 {
		return nil, nil
	}
	limit := uint64(topK)
	scoreThreshold := float32(threshold)

	results, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		ScoreThreshold: &scoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("qdrant: query: %w: %w", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("qdrant: query: %w: %w", domain.ErrVectorIndexError, err)
	}

	out := make([]domres.Scored, 0, len(results))
	for _, r := range results {
		out = append(out, fromScoredPoint(r))
	}
	return out, nil
}

// HealthCheck calls the Qdrant health RPC.
func (i *Index) HealthCheck(ctx context.Context) error {
	if _, err := i.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (i *Index) Close() error {
	if err := i.client.Close(); err != nil {
		return fmt.Errorf("qdrant close: %w", err)
	}
	return nil
}

// PointID is the deterministic point UUID for a resource ID.
func PointID(resourceID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(resourceID)).String()
}

func toPoint(r *domres.Resource) *qdrant.PointStruct {
	if len(r.Embedding) == 0 {
		return nil
	}
	tags := make([]any, len(r.Tags))
	for i, t := range r.Tags {
		tags[i] = t
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(r.ID)),
		Vectors: qdrant.NewVectors(r.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadID:          r.ID,
			payloadTitle:       r.Title,
			payloadDescription: r.Description,
			payloadURL:         r.URL,
			payloadTags:        tags,
		}),
	}
}

func fromScoredPoint(p *qdrant.ScoredPoint) domres.Scored {
	s := domres.Scored{Similarity: float64(p.GetScore())}
	payload := p.GetPayload()
	s.ID = payload[payloadID].GetStringValue()
	if s.ID == "" {
		s.ID = p.GetId().GetUuid()
	}
	s.Title = payload[payloadTitle].GetStringValue()
	s.Description = payload[payloadDescription].GetStringValue()
	s.URL = payload[payloadURL].GetStringValue()
	for _, v := range payload[payloadTags].GetListValue().GetValues() {
		if t := v.GetStringValue(); t != "" {
			s.Tags = append(s.Tags, t)
		}
	}
	return s
}
