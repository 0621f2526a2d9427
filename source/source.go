// Package source provides the record fetchers feeding ingestion and the
// strict-priority fallback chain across them: primary provider, then the
// local dataset file, then the built-in sample corpus.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/scoutdex/scoutdex/record"
)

// ErrExhausted is returned when every fetcher in a chain failed or produced
// an empty batch. It is the fatal condition that blocks a sync entirely.
var ErrExhausted = errors.New("source: all sources exhausted")

// Fetcher produces a batch of normalized records from one source.
type Fetcher interface {
	// Fetch returns the current full corpus of this source.
	Fetch(ctx context.Context) ([]record.Record, error)

	// Name identifies the source for logs and provenance.
	Name() string
}

// Chain tries fetchers in strict priority order and returns the first
// non-empty successful batch.
type Chain struct {
	fetchers []Fetcher
	logger   *slog.Logger
}

// NewChain creates a chain over the given fetchers, highest priority first.
func NewChain(logger *slog.Logger, fetchers ...Fetcher) *Chain {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Chain{fetchers: fetchers, logger: logger}
}

// Name identifies the chain for logs.
func (c *Chain) Name() string { return "chain" }

// Fetch walks the fetchers in order. A failed or empty source is logged and
// the next one is tried; only when every source fails does the chain report
// ErrExhausted.
func (c *Chain) Fetch(ctx context.Context) ([]record.Record, error) {
	var lastErr error
	for _, f := range c.fetchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := f.Fetch(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "source failed, trying next",
				"source", f.Name(),
				"error", err,
			)
			lastErr = err
			continue
		}
		if len(batch) == 0 {
			c.logger.WarnContext(ctx, "source returned empty batch, trying next",
				"source", f.Name(),
			)
			continue
		}

		c.logger.DebugContext(ctx, "source selected",
			"source", f.Name(),
			"records", len(batch),
		)
		return batch, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
	}
	return nil, ErrExhausted
}
