// Package vector holds pure numeric helpers for embedding vectors.
package vector

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/readnext/internal/domain"
)

// Undefined is returned by Cosine when either vector has zero norm.
// It is finite and below -1, so it ranks under every threshold in [-1, 1].
const Undefined = -2.0

// IsUndefined reports whether s is the Undefined sentinel.
func IsUndefined(s float64) bool {
	return s == Undefined
}

// Cosine returns dot(a,b) / (|a|*|b|).
// a and b must be non-empty and of equal length.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("cosine of vectors with len %d and %d: %w", len(a), len(b), domain.ErrInvalidArgument)
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return Undefined, nil
	}

	s := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return Undefined, nil
	}
	// float rounding can push parallel vectors a hair outside [-1, 1]
	return math.Max(-1, math.Min(1, s)), nil
}
