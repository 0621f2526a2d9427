package scoutdex

import (
	"github.com/scoutdex/scoutdex/capability"
	"github.com/scoutdex/scoutdex/rank"
	"github.com/scoutdex/scoutdex/retry"
)

const (
	// DefaultTopK is the number of candidates retrieved when callers pass
	// k <= 0 and for answer grounding.
	DefaultTopK = 5

	// DefaultPromptBudget caps the context characters packed into a
	// generation prompt.
	DefaultPromptBudget = 4000
)

// Options contains configuration options for the engine.
type Options struct {
	// Logger receives structured operational logs. Defaults to a no-op.
	Logger *Logger

	// Metrics receives per-operation measurements. Defaults to a no-op.
	Metrics MetricsCollector

	// TopK is the default candidate count for Search and Ask.
	TopK int

	// PromptBudget bounds the total context characters in a generation
	// prompt. Least similar candidates are dropped first when over budget.
	PromptBudget int

	// RetryPolicy is applied to every embedding and generation call.
	RetryPolicy retry.Policy

	// Calibration tunes the z-score thresholds behind the match labels.
	Calibration rank.Calibration
}

func defaultOptions() Options {
	policy := retry.DefaultPolicy
	policy.Retryable = capability.IsRetryable
	return Options{
		Logger:       NoopLogger(),
		Metrics:      NoopMetricsCollector{},
		TopK:         DefaultTopK,
		PromptBudget: DefaultPromptBudget,
		RetryPolicy:  policy,
		Calibration:  rank.DefaultCalibration,
	}
}

// Option configures the engine.
type Option func(*Options)

// WithLogger sets the structured logger.
func WithLogger(l *Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithTopK sets the default candidate count for Search and Ask.
func WithTopK(k int) Option {
	return func(o *Options) {
		if k > 0 {
			o.TopK = k
		}
	}
}

// WithPromptBudget sets the prompt context budget in characters.
func WithPromptBudget(chars int) Option {
	return func(o *Options) {
		if chars > 0 {
			o.PromptBudget = chars
		}
	}
}

// WithRetryPolicy sets the backoff policy for capability calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Options) { o.RetryPolicy = p }
}

// WithCalibration sets the label thresholds for calibrated scores.
func WithCalibration(c rank.Calibration) Option {
	return func(o *Options) { o.Calibration = c }
}
