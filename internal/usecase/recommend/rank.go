package recommend

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/readnext/internal/domain/resource"
	"github.com/kailas-cloud/readnext/internal/domain/vector"
)

const (
	// DefaultChunkSize is the number of candidates scored per task.
	DefaultChunkSize = 100
	// DefaultTopK is the result size when none is configured.
	DefaultTopK = 5
	// DefaultMinCandidates is the candidate gate when none is configured.
	DefaultMinCandidates = 5
	// DefaultThreshold is the similarity cutoff when none is configured.
	DefaultThreshold = 0.4
)

// Ranker scores candidates against a query embedding.
type Ranker struct {
	chunkSize int
	workers   int
}

// NewRanker creates a ranker. Non-positive values fall back to defaults;
// workers defaults to GOMAXPROCS.
func NewRanker(chunkSize, workers int) *Ranker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ranker{chunkSize: chunkSize, workers: workers}
}

// Rank scores every candidate, drops undefined scores and scores below
// threshold, and returns at most topK results sorted by descending
// similarity. Ties keep input order. Candidates without an embedding are
// skipped; an embedding of the wrong length fails the call.
func (r *Ranker) Rank(
	ctx context.Context, candidates []resource.Resource, query []float32, threshold float64, topK int,
) ([]resource.Scored, error) {
	if len(candidates) == 0 || topK <= 0 {
		return nil, nil
	}

	scores := make([]float64, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for start := 0; start < len(candidates); start += r.chunkSize {
		end := min(start+r.chunkSize, len(candidates))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // context error is classified by the caller
			}
			return scoreChunk(candidates[start:end], query, scores[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	scored := make([]resource.Scored, len(candidates))
	for i := range candidates {
		scored[i] = resource.Scored{Resource: candidates[i], Similarity: scores[i]}
	}
	return selectTop(scored, threshold, topK), nil
}

// scoreChunk writes one score per candidate into out, which has the same length.
func scoreChunk(candidates []resource.Resource, query []float32, out []float64) error {
	for i := range candidates {
		if len(candidates[i].Embedding) == 0 {
			out[i] = vector.Undefined
			continue
		}
		sim, err := vector.Cosine(candidates[i].Embedding, query)
		if err != nil {
			return fmt.Errorf("resource %s: %w", candidates[i].ID, err)
		}
		out[i] = sim
	}
	return nil
}

// selectTop applies the threshold, sorts stably by descending similarity and
// truncates to topK. Remote backends pass through here too so every result
// set honours the same contract.
func selectTop(scored []resource.Scored, threshold float64, topK int) []resource.Scored {
	kept := make([]resource.Scored, 0, len(scored))
	for _, s := range scored {
		if vector.IsUndefined(s.Similarity) || math.IsNaN(s.Similarity) || s.Similarity < threshold {
			continue
		}
		kept = append(kept, s)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})
	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}
