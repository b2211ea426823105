package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(i)}
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.result.TotalTokens * len(texts),
	}, nil
}

func TestEmbed_RecordsUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 7}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	result, err := p.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 1 {
		t.Fatalf("unexpected embedding: %v", result.Embedding)
	}
	if usage.TotalTokens != 7 || !usage.Used {
		t.Errorf("unexpected usage: %+v", usage)
	}
}

func TestEmbed_NoUsageCollector(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 7}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbed_Error(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("429: %w", domain.ErrEmbeddingServiceError)}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingServiceError) {
		t.Fatalf("expected ErrEmbeddingServiceError, got %v", err)
	}
}

func TestBatchEmbed_Chunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{TotalTokens: 2}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop()).WithMaxBatchSize(3)

	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	ctx, usage := domain.NewContextWithUsage(context.Background())
	result, err := p.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}
	if fmt.Sprint(inner.batchSizes) != "[3 3 1]" {
		t.Errorf("unexpected chunking: %v", inner.batchSizes)
	}
	if result.TotalTokens != 14 || usage.TotalTokens != 14 {
		t.Errorf("expected 14 tokens, got result=%d usage=%d", result.TotalTokens, usage.TotalTokens)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embeddings != nil || len(inner.batchSizes) != 0 {
		t.Errorf("expected no calls for empty input")
	}
}

func TestBatchEmbed_Error(t *testing.T) {
	inner := &mockEmbedder{batchErr: domain.ErrEmbeddingServiceError}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEmbeddingServiceError) {
		t.Fatalf("expected ErrEmbeddingServiceError, got %v", err)
	}
}
