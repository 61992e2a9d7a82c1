package types

import (
	"log/slog"
	"time"
)

// CallOptions holds per-operation settings for write operations.
type CallOptions struct {
	// Retention selects the backend for the written entry. Zero means
	// unspecified: existing entries keep their class, new entries
	// default to RetentionShort.
	Retention Retention
}

// Option is a functional option for configuring a single operation.
type Option func(*CallOptions)

// ApplyOptions applies functional options to create CallOptions.
func ApplyOptions(opts ...Option) *CallOptions {
	options := &CallOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// EngineOptions holds construction-time collaborators for the engine.
type EngineOptions struct {
	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is the metrics recorder. Nil disables recording.
	Metrics MetricsRecorder

	// Serializer encodes namespace blobs and caller values. Defaults
	// to the JSON serializer.
	Serializer Serializer

	// Clock supplies "now" for expiry computation. Defaults to
	// time.Now; tests inject a fake for deterministic staleness.
	Clock func() time.Time
}
