// Package capability defines the two model endpoints the core consumes,
// embed(text) -> vector and generate(prompt) -> text, and the error kinds
// their implementations must surface.
package capability

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited indicates the provider throttled the call.
	// Always retryable with backoff.
	ErrRateLimited = errors.New("capability: rate limited")

	// ErrUnavailable indicates a transient provider failure or timeout.
	ErrUnavailable = errors.New("capability: unavailable")

	// ErrInvalidInput indicates the provider rejected the input itself.
	// Retrying the same input cannot succeed.
	ErrInvalidInput = errors.New("capability: invalid input")
)

// Embedder converts text into a fixed-dimensionality dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IsRetryable reports whether a capability error is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
