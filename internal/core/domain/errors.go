package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type the pipeline cannot index.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrCursorExpired indicates the incremental sync cursor was
	// invalidated by the source. The caller must fall back to a full
	// sync. This is structural, not transient: retrying with the same
	// cursor can never succeed.
	ErrCursorExpired = errors.New("sync cursor expired")

	// ErrExtractorUnavailable indicates the entity extraction service
	// is not configured. Strategy building degrades to the filterless
	// fallback without it.
	ErrExtractorUnavailable = errors.New("entity extraction unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector/semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrBackendUnavailable indicates the search backend is not
	// reachable or not configured.
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceValidation indicates file source validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrSourceValidation = errors.New("file source validation failed")
)
