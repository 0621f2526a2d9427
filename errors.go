package scoutdex

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Search and Answer before any snapshot has
	// been built or loaded. It is an explicit condition, never an
	// empty-looking success.
	ErrNotReady = errors.New("scoutdex: index not ready, run sync first")

	// ErrSourceUnavailable is returned by Sync when every data fallback is
	// exhausted. The previous snapshot remains authoritative.
	ErrSourceUnavailable = errors.New("scoutdex: data source unavailable")

	// ErrInvalidQuery is returned for empty query or question text.
	ErrInvalidQuery = errors.New("scoutdex: empty query")
)

// EmbeddingError indicates the query or question embedding failed after
// retries. Unlike per-record ingestion failures it aborts the whole
// operation.
//
// The original underlying error can be accessed via errors.Unwrap.
type EmbeddingError struct {
	cause error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("scoutdex: embedding failed: %v", e.cause)
}

func (e *EmbeddingError) Unwrap() error { return e.cause }
