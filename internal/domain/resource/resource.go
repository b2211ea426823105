// Package resource defines a recommendable reading resource and its derived shapes.
package resource

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/readnext/internal/domain/text"
)

// Resource is a recommendable book or article.
// Embedding represents title+description and is immutable after ingestion.
// TagEmbedding represents the joined tag string and is optional.
type Resource struct {
	ID           string
	Title        string
	Description  string
	URL          string
	Tags         []string
	Embedding    []float32
	TagEmbedding []float32
}

// Scored is a candidate with its similarity to the query.
type Scored struct {
	Resource
	Similarity float64
}

// Validate checks required fields and, when dim > 0, embedding lengths.
func (r *Resource) Validate(dim int) error {
	if r.ID == "" {
		return errors.New("resource ID is required")
	}
	if r.Title == "" {
		return fmt.Errorf("resource %s: title is required", r.ID)
	}
	if dim > 0 {
		if len(r.Embedding) > 0 && len(r.Embedding) != dim {
			return fmt.Errorf("resource %s: embedding has %d dims, want %d", r.ID, len(r.Embedding), dim)
		}
		if len(r.TagEmbedding) > 0 && len(r.TagEmbedding) != dim {
			return fmt.Errorf("resource %s: tag embedding has %d dims, want %d", r.ID, len(r.TagEmbedding), dim)
		}
	}
	return nil
}

// EmbeddingText is the source text of the content embedding.
func (r *Resource) EmbeddingText() string {
	if r.Description == "" {
		return r.Title
	}
	return r.Title + ". " + r.Description
}

// MergeTags returns the sorted, normalized union of two tag sets.
// Re-ingestion accumulates tags instead of overwriting them.
func MergeTags(existing, incoming []string) []string {
	set := make(map[string]struct{}, len(existing)+len(incoming))
	for _, group := range [][]string{existing, incoming} {
		for _, t := range group {
			if t = text.NormalizeTag(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
