package recommend

import (
	"math/rand/v2"
	"sync"

	"github.com/kailas-cloud/readnext/internal/domain/resource"
)

// Sampler caps a candidate set. Implementations return the input unchanged
// when it already fits or when maxSize <= 0.
type Sampler interface {
	Sample(candidates []resource.Resource, maxSize int) []resource.Resource
}

// UniformSampler draws a uniform random subset with a partial Fisher-Yates shuffle.
type UniformSampler struct {
	mu  sync.Mutex
	rng *rand.Rand // nil uses the global source
}

// NewUniformSampler samples from the runtime-seeded global source.
func NewUniformSampler() *UniformSampler {
	return &UniformSampler{}
}

// NewSeededSampler samples from a PCG source seeded with seed. Output is
// reproducible for a fixed sequence of calls.
func NewSeededSampler(seed uint64) *UniformSampler {
	return &UniformSampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sample returns maxSize elements chosen uniformly without replacement.
// The input slice is not modified.
func (s *UniformSampler) Sample(candidates []resource.Resource, maxSize int) []resource.Resource {
	n := len(candidates)
	if maxSize <= 0 || n <= maxSize {
		return candidates
	}

	out := make([]resource.Resource, n)
	copy(out, candidates)

	if s.rng != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	for i := range maxSize {
		j := i + s.intN(n-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:maxSize:maxSize]
}

func (s *UniformSampler) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	return s.rng.IntN(n)
}

// PrefixSampler keeps the first maxSize candidates in store order.
type PrefixSampler struct{}

// Sample truncates candidates to maxSize.
func (PrefixSampler) Sample(candidates []resource.Resource, maxSize int) []resource.Resource {
	if maxSize <= 0 || len(candidates) <= maxSize {
		return candidates
	}
	return candidates[:maxSize:maxSize]
}

// NewSampler builds the sampler named in configuration.
// A non-zero seed makes the uniform sampler deterministic.
func NewSampler(kind string, seed uint64) Sampler {
	switch kind {
	case "prefix":
		return PrefixSampler{}
	default:
		if seed != 0 {
			return NewSeededSampler(seed)
		}
		return NewUniformSampler()
	}
}
