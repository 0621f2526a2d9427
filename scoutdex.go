package scoutdex

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scoutdex/scoutdex/capability"
	"github.com/scoutdex/scoutdex/distance"
	"github.com/scoutdex/scoutdex/index"
	"github.com/scoutdex/scoutdex/ingest"
	"github.com/scoutdex/scoutdex/record"
	"github.com/scoutdex/scoutdex/snapshot"
	"github.com/scoutdex/scoutdex/source"
)

// Engine is the retrieval-augmented question-answering engine.
//
// All read operations observe one immutable state pair (snapshot + index)
// swapped in atomically at the end of each sync. Concurrent Sync calls are
// coalesced into a single flight.
type Engine struct {
	embedder  capability.Embedder
	generator capability.Generator
	store     *snapshot.Store
	builder   *ingest.Builder

	opts Options

	state    atomic.Pointer[engineState]
	syncers  singleflight.Group
	lastSync atomic.Pointer[ingest.Report]
}

// engineState is the immutable read state: a snapshot, the index built from
// it, and the ordered record store for ID lookups. idx is nil when the
// corpus is empty.
type engineState struct {
	snap    *snapshot.Snapshot
	idx     *index.Flat
	records *record.Store
}

// New creates an engine. store may be nil for memory-only operation.
//
// When a store is given, the persisted snapshot is loaded immediately so
// Search and Ask work across restarts without waiting for the first sync.
// A missing or corrupt snapshot is not an error; the engine starts empty
// and the next sync rebuilds everything from the source.
func New(embedder capability.Embedder, generator capability.Generator, store *snapshot.Store, optFns ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, errors.New("scoutdex: embedder is required")
	}
	if generator == nil {
		return nil, errors.New("scoutdex: generator is required")
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		embedder:  embedder,
		generator: generator,
		store:     store,
		opts:      opts,
	}
	e.builder = ingest.NewBuilder(embedder, store,
		ingest.WithRetryPolicy(opts.RetryPolicy),
		ingest.WithLogger(opts.Logger.Logger),
	)

	if store != nil {
		ctx := context.Background()
		snap, err := store.Load(ctx)
		switch {
		case err == nil:
			st, buildErr := buildState(ctx, snap)
			if buildErr != nil {
				opts.Logger.LogSnapshotLoad(ctx, 0, buildErr)
			} else {
				e.state.Store(st)
				opts.Logger.LogSnapshotLoad(ctx, snap.Len(), nil)
			}
		case errors.Is(err, snapshot.ErrNotFound):
			// First run; nothing persisted yet.
		default:
			opts.Logger.LogSnapshotLoad(ctx, 0, err)
		}
	}

	return e, nil
}

// buildState constructs the index for a snapshot and pairs the two.
func buildState(ctx context.Context, snap *snapshot.Snapshot) (*engineState, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	records, err := record.FromRecords(snap.Records)
	if err != nil {
		return nil, err
	}
	st := &engineState{
		snap:    snap,
		records: records,
	}

	if snap.Len() == 0 {
		return st, nil
	}

	idx, err := index.New(func(o *index.Options) {
		o.Dimension = snap.Dimension
		o.Metric = distance.MetricCosine
	})
	if err != nil {
		return nil, err
	}
	for i, e := range snap.Entries {
		if err := idx.Add(ctx, e.ID, snap.Vectors[i]); err != nil {
			return nil, fmt.Errorf("scoutdex: index build for %q: %w", e.ID, err)
		}
	}
	st.idx = idx
	return st, nil
}

// Sync fetches the current corpus, embeds what changed, and atomically swaps
// in the new snapshot and index. Reads running concurrently keep seeing the
// previous state until the swap.
//
// Per-record failures land in the report, not in the error. Sync returns
// ErrSourceUnavailable only when every source in the fetcher chain failed;
// the previous state stays authoritative in that case.
//
// Concurrent Sync calls share a single flight and receive the same report.
func (e *Engine) Sync(ctx context.Context, fetcher source.Fetcher) (ingest.Report, error) {
	v, err, _ := e.syncers.Do("sync", func() (interface{}, error) {
		return e.doSync(ctx, fetcher)
	})
	if err != nil {
		return ingest.Report{}, err
	}
	return v.(ingest.Report), nil
}

func (e *Engine) doSync(ctx context.Context, fetcher source.Fetcher) (ingest.Report, error) {
	started := time.Now()

	batch, err := fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, source.ErrExhausted) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		e.opts.Logger.LogSync(ctx, "", 0, 0, 0, 0, err)
		return ingest.Report{}, err
	}

	var prev *snapshot.Snapshot
	if st := e.state.Load(); st != nil {
		prev = st.snap
	}

	snap, report := e.builder.Sync(ctx, prev, batch)

	st, err := buildState(ctx, snap)
	if err != nil {
		// The builder only emits snapshots that pass validation, so this
		// is a programming error rather than an operational one.
		e.opts.Logger.LogSync(ctx, report.RunID, 0, 0, 0, 0, err)
		return ingest.Report{}, fmt.Errorf("scoutdex: rebuilding index: %w", err)
	}
	e.state.Store(st)
	e.lastSync.Store(&report)

	e.opts.Metrics.RecordSync(report.Added, report.Updated, report.Failed, time.Since(started))
	e.opts.Logger.LogSync(ctx, report.RunID, report.Added, report.Updated, report.Unchanged, report.Failed, nil)
	return report, nil
}

// Health describes the engine's readiness for reads.
type Health struct {
	// Ready reports whether a snapshot is loaded and reads will succeed.
	Ready bool `json:"index_loaded"`
	// Records is the number of indexed records.
	Records int `json:"record_count"`
	// Dimension is the embedding dimensionality, 0 before the first embed.
	Dimension int `json:"dimension"`
	// LastSyncAt is when the most recent sync finished, zero before any.
	LastSyncAt time.Time `json:"last_sync_time,omitzero"`
	// LastRunID identifies the most recent sync cycle.
	LastRunID string `json:"last_run_id,omitempty"`
	// LastSyncErrors carries the per-record failures of the last sync.
	LastSyncErrors []string `json:"last_sync_errors,omitempty"`
}

// Health returns the current readiness state. It never blocks.
func (e *Engine) Health() Health {
	var h Health
	if st := e.state.Load(); st != nil {
		h.Ready = true
		h.Records = st.snap.Len()
		h.Dimension = st.snap.Dimension
	}
	if r := e.lastSync.Load(); r != nil {
		h.LastSyncAt = r.FinishedAt
		h.LastRunID = r.RunID
		h.LastSyncErrors = r.Errors
	}
	return h
}

// embedQuery embeds free text with the configured retry policy. Failures are
// wrapped in EmbeddingError; unlike per-record sync failures they abort the
// whole read operation.
func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := e.opts.RetryPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = e.embedder.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, &EmbeddingError{cause: err}
	}
	if len(vec) == 0 {
		return nil, &EmbeddingError{cause: errors.New("embedder returned empty vector")}
	}
	return vec, nil
}
