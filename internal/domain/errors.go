package domain

import "errors"

var (
	// ErrEmptyQuery signals note content that is empty after trimming.
	ErrEmptyQuery = errors.New("content cannot be empty")
	// ErrInvalidArgument signals a programming error such as mismatched vector lengths.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable signals a failed corpus read or write.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEmbeddingServiceError signals an embedding provider failure or a malformed response.
	ErrEmbeddingServiceError = errors.New("embedding service error")
	// ErrVectorIndexError signals a failure of the remote vector index.
	ErrVectorIndexError = errors.New("vector index error")
	// ErrTimeout signals that the caller deadline elapsed mid-pipeline.
	ErrTimeout = errors.New("timeout")
)
