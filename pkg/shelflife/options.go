package shelflife

import (
	"log/slog"
	"time"

	"github.com/shelflife/shelflife/internal/types"
)

type (
	// Option configures a single write operation.
	Option = types.Option
	// CallOptions holds the settings an Option mutates.
	CallOptions = types.CallOptions
	// EngineOptions holds construction-time collaborators.
	EngineOptions = types.EngineOptions
)

// WithRetention selects the retention class (and so the backend) for the
// written entry. Without it, existing entries keep their class and new
// entries default to RetentionShort.
func WithRetention(r Retention) Option {
	return func(o *CallOptions) {
		o.Retention = r
	}
}

// WithShortRetention writes the entry to the short-lived store.
func WithShortRetention() Option {
	return WithRetention(RetentionShort)
}

// WithLongRetention writes the entry to the long-lived store.
func WithLongRetention() Option {
	return WithRetention(RetentionLong)
}

// EngineOption configures the cache at construction time.
type EngineOption func(*EngineOptions)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *EngineOptions) {
		o.Logger = logger
	}
}

// WithMetrics sets a custom metrics recorder, replacing the built-in
// tracker.
func WithMetrics(metrics MetricsRecorder) EngineOption {
	return func(o *EngineOptions) {
		o.Metrics = metrics
	}
}

// WithSerializer sets a custom serializer.
func WithSerializer(serializer Serializer) EngineOption {
	return func(o *EngineOptions) {
		o.Serializer = serializer
	}
}

// WithClock sets the time source used for expiry computation. Meant for
// tests that need deterministic staleness.
func WithClock(clock func() time.Time) EngineOption {
	return func(o *EngineOptions) {
		o.Clock = clock
	}
}
