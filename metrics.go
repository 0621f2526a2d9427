package scoutdex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordSync is called after each sync cycle.
	// added+updated is the number of embeddings produced, failed the number
	// of records skipped, duration the total cycle time.
	RecordSync(added, updated, failed int, duration time.Duration)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested, err is nil if successful.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordAnswer is called after each answer operation.
	// degraded reports whether the generation fallback was used.
	RecordAnswer(degraded bool, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSync(int, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordAnswer(bool, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SyncCount        atomic.Int64
	SyncEmbedded     atomic.Int64
	SyncFailed       atomic.Int64
	SyncTotalNanos   atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	AnswerCount      atomic.Int64
	AnswerDegraded   atomic.Int64
	AnswerErrors     atomic.Int64
}

// RecordSync implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSync(added, updated, failed int, duration time.Duration) {
	b.SyncCount.Add(1)
	b.SyncEmbedded.Add(int64(added + updated))
	b.SyncFailed.Add(int64(failed))
	b.SyncTotalNanos.Add(duration.Nanoseconds())
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordAnswer implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAnswer(degraded bool, duration time.Duration, err error) {
	b.AnswerCount.Add(1)
	if degraded {
		b.AnswerDegraded.Add(1)
	}
	if err != nil {
		b.AnswerErrors.Add(1)
	}
}
