package readnext

import "github.com/kailas-cloud/readnext/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuery            = domain.ErrEmptyQuery
	ErrInvalidArgument       = domain.ErrInvalidArgument
	ErrNotFound              = domain.ErrNotFound
	ErrStoreUnavailable      = domain.ErrStoreUnavailable
	ErrEmbeddingServiceError = domain.ErrEmbeddingServiceError
	ErrTimeout               = domain.ErrTimeout
)
