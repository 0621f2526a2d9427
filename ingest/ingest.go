// Package ingest builds new index snapshots from fetched record batches.
//
// The builder embeds only records whose fingerprint changed, carries
// everything else over from the previous snapshot, and absorbs per-record
// failures into the report so one bad record never aborts a sync.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scoutdex/scoutdex/capability"
	"github.com/scoutdex/scoutdex/record"
	"github.com/scoutdex/scoutdex/retry"
	"github.com/scoutdex/scoutdex/snapshot"
)

// Report summarizes one sync cycle. All per-record failures land in Errors;
// none of them escape as a Go error.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Added     int      `json:"records_added"`
	Updated   int      `json:"records_updated"`
	Unchanged int      `json:"records_unchanged"`
	Removed   int      `json:"records_removed"`
	Failed    int      `json:"records_failed"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *Report) fail(id string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", id, err))
}

// Builder turns record batches into snapshots.
type Builder struct {
	embedder capability.Embedder
	store    *snapshot.Store
	policy   retry.Policy
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRetryPolicy sets the backoff policy for embedding calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(b *Builder) { b.policy = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder. store may be nil to skip persistence
// (memory-only operation, used in tests).
func NewBuilder(embedder capability.Embedder, store *snapshot.Store, optFns ...Option) *Builder {
	b := &Builder{
		embedder: embedder,
		store:    store,
		policy:   retry.DefaultPolicy,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	b.policy.Retryable = capability.IsRetryable
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

// Sync builds the next snapshot from prev and the fetched batch.
//
// Records are processed in batch order. Classification follows the change
// detector: unchanged records keep their vector, changed records are
// re-embedded (keeping the previous version if embedding fails so the next
// cycle retries), new records are embedded and appended. Records present in
// prev but absent from the batch are dropped.
//
// Cancellation is cooperative and checked at each record boundary: work
// completed before the cancellation is still merged and persisted.
//
// The returned snapshot is always valid for in-memory use, even when
// persistence failed (the failure is recorded in the report; the on-disk
// state keeps its previous, consistent snapshot).
func (b *Builder) Sync(ctx context.Context, prev *snapshot.Snapshot, batch []record.Record) (*snapshot.Snapshot, Report) {
	report := Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	defer func() { report.FinishedAt = time.Now() }()

	prevFingerprints := map[string]string{}
	prevIndex := map[string]int{}
	dimension := 0
	if prev != nil {
		prevFingerprints = prev.Fingerprints()
		for i, r := range prev.Records {
			prevIndex[r.ID] = i
		}
		dimension = prev.Dimension
	}

	// Duplicates are dropped before change detection runs: a later stale
	// duplicate must not override the classification of the occurrence
	// that is actually processed.
	seen := make(map[string]bool, len(batch))
	unique := make([]record.Record, 0, len(batch))
	for _, r := range batch {
		if seen[r.ID] {
			report.fail(r.ID, fmt.Errorf("duplicate id in batch"))
			continue
		}
		seen[r.ID] = true
		unique = append(unique, r)
	}

	changes := record.Diff(prevFingerprints, unique)
	classification := make(map[string]int, len(unique))
	for _, r := range changes.New {
		classification[r.ID] = classNew
	}
	for _, r := range changes.Changed {
		classification[r.ID] = classChanged
	}
	for _, r := range changes.Unchanged {
		classification[r.ID] = classUnchanged
	}

	next := &snapshot.Snapshot{CreatedAt: report.StartedAt}
	cancelled := false

	for _, r := range unique {
		// Cooperative cancellation: stop making progress, keep what we have.
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			b.logger.WarnContext(ctx, "sync cancelled, merging partial work",
				"run_id", report.RunID,
			)
		}

		switch classification[r.ID] {
		case classUnchanged:
			i := prevIndex[r.ID]
			// Metadata may have moved without touching the embeddable
			// fields; store the fresh record but keep vector and entry.
			appendRow(next, r, prev.Entries[i], prev.Vectors[i])
			report.Unchanged++

		case classChanged:
			if cancelled {
				appendRow(next, prev.Records[prevIndex[r.ID]], prev.Entries[prevIndex[r.ID]], prev.Vectors[prevIndex[r.ID]])
				report.fail(r.ID, context.Cause(ctx))
				continue
			}
			vec, err := b.embed(ctx, r, dimension)
			if err != nil {
				// Keep the previous version so the fingerprint mismatch
				// persists and the next cycle retries the embed.
				i := prevIndex[r.ID]
				appendRow(next, prev.Records[i], prev.Entries[i], prev.Vectors[i])
				report.fail(r.ID, err)
				continue
			}
			if dimension == 0 {
				dimension = len(vec)
			}
			appendRow(next, r, snapshot.Entry{ID: r.ID, Fingerprint: r.Fingerprint}, vec)
			report.Updated++

		default: // new
			if cancelled {
				report.fail(r.ID, context.Cause(ctx))
				continue
			}
			vec, err := b.embed(ctx, r, dimension)
			if err != nil {
				report.fail(r.ID, err)
				continue
			}
			if dimension == 0 {
				dimension = len(vec)
			}
			appendRow(next, r, snapshot.Entry{ID: r.ID, Fingerprint: r.Fingerprint}, vec)
			report.Added++
		}
	}

	for id := range prevFingerprints {
		if !seen[id] {
			report.Removed++
		}
	}

	next.Dimension = dimension

	if b.store != nil {
		if err := b.store.Save(ctx, next); err != nil {
			// In-memory state stays valid; on restart the previous
			// persisted snapshot is authoritative.
			b.logger.ErrorContext(ctx, "snapshot persistence failed",
				"run_id", report.RunID,
				"error", err,
			)
			report.Errors = append(report.Errors, fmt.Sprintf("persist: %v", err))
		}
	}

	b.logger.InfoContext(ctx, "sync completed",
		"run_id", report.RunID,
		"added", report.Added,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"removed", report.Removed,
		"failed", report.Failed,
	)

	return next, report
}

const (
	classNew = iota
	classChanged
	classUnchanged
)

func appendRow(s *snapshot.Snapshot, r record.Record, e snapshot.Entry, vec []float32) {
	s.Records = append(s.Records, r)
	s.Entries = append(s.Entries, e)
	s.Vectors = append(s.Vectors, vec)
}

func (b *Builder) embed(ctx context.Context, r record.Record, dimension int) ([]float32, error) {
	var vec []float32
	err := b.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = b.embedder.Embed(ctx, r.EmbedText())
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}
	// Mixing dimensionalities would silently corrupt the index; fail fast.
	if dimension != 0 && len(vec) != dimension {
		return nil, fmt.Errorf("embedding dimension %d does not match index dimension %d", len(vec), dimension)
	}
	return vec, nil
}
