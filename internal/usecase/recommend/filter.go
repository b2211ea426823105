package recommend

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/readnext/internal/domain/resource"
	"github.com/kailas-cloud/readnext/internal/domain/vector"
)

// Strategy selects how the corpus is narrowed before the content embedding call.
type Strategy string

const (
	// StrategyKeyword loads the corpus and keeps resources containing any keyword.
	StrategyKeyword Strategy = "keyword"
	// StrategyTagEmbedding compares an embedding of the keywords with stored tag embeddings.
	StrategyTagEmbedding Strategy = "tag_embedding"
	// StrategyTagQuery asks the store for resources whose tags intersect the keywords.
	StrategyTagQuery Strategy = "tag_query"
	// StrategyNone takes a bounded slice of the corpus without a lexical signal.
	StrategyNone Strategy = "none"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyKeyword, StrategyTagEmbedding, StrategyTagQuery, StrategyNone:
		return st, nil
	default:
		return "", fmt.Errorf("unknown filter strategy %q", s)
	}
}

// needsKeywords reports whether the strategy has nothing to go on without keywords.
func (s Strategy) needsKeywords() bool {
	return s != StrategyNone
}

// FilterByKeywords keeps resources whose lowercased title and description
// contain at least one keyword as a substring. "art" matches "heart".
func FilterByKeywords(resources []resource.Resource, keywords []string) []resource.Resource {
	if len(keywords) == 0 {
		return nil
	}
	out := make([]resource.Resource, 0, len(resources))
	for _, r := range resources {
		haystack := strings.ToLower(r.Title + " " + r.Description)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// FilterByTagEmbedding keeps resources whose tag embedding scores at least
// threshold against query. Resources without a tag embedding are not yet
// indexed and are skipped.
func FilterByTagEmbedding(resources []resource.Resource, query []float32, threshold float64) ([]resource.Resource, error) {
	out := make([]resource.Resource, 0, len(resources))
	for _, r := range resources {
		if len(r.TagEmbedding) == 0 {
			continue
		}
		sim, err := vector.Cosine(r.TagEmbedding, query)
		if err != nil {
			return nil, fmt.Errorf("tag embedding of %s: %w", r.ID, err)
		}
		if vector.IsUndefined(sim) || sim < threshold {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func withTagEmbedding(resources []resource.Resource) []resource.Resource {
	out := resources[:0:0]
	for _, r := range resources {
		if len(r.TagEmbedding) > 0 {
			out = append(out, r)
		}
	}
	return out
}
