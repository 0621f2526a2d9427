package scoutdex

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with scoutdex-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LogSync logs a completed or failed sync cycle.
func (l *Logger) LogSync(ctx context.Context, runID string, added, updated, unchanged, failed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sync failed",
			"run_id", runID,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sync completed",
			"run_id", runID,
			"added", added,
			"updated", updated,
			"unchanged", unchanged,
			"failed", failed,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogAnswer logs a question-answering operation.
func (l *Logger) LogAnswer(ctx context.Context, retrieved int, degraded bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "answer failed",
			"retrieved", retrieved,
			"error", err,
		)
	} else if degraded {
		l.WarnContext(ctx, "answer degraded to context-only summary",
			"retrieved", retrieved,
		)
	} else {
		l.DebugContext(ctx, "answer completed",
			"retrieved", retrieved,
		)
	}
}

// LogSnapshotLoad logs the result of loading the persisted snapshot.
func (l *Logger) LogSnapshotLoad(ctx context.Context, records int, err error) {
	if err != nil {
		l.WarnContext(ctx, "snapshot load failed, starting empty",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"records", records,
		)
	}
}
