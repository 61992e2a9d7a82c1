package shelflife

import (
	"encoding/json"

	"github.com/shelflife/shelflife/internal/types"
)

type (
	// Retention selects which of the two backends persists an entry.
	Retention = types.Retention
	// Entry represents a cached value with its expiry and retention class.
	Entry = types.Entry
	// Store is the key-value contract a backend must satisfy.
	Store = types.Store
	// Serializer provides serialization and deserialization operations.
	Serializer = types.Serializer
	// MetricsRecorder provides operations for recording cache metrics.
	MetricsRecorder = types.MetricsRecorder
)

const (
	// RetentionShort marks volatile entries kept in the short-lived store.
	RetentionShort = types.RetentionShort
	// RetentionLong marks durable entries kept in the long-lived store.
	RetentionLong = types.RetentionLong
)

// Null is the JSON null sentinel that unknown keys settle as. It is a
// present value, distinct from an absent one.
var Null = types.Null

// IsNull reports whether raw holds the JSON null sentinel.
func IsNull(raw json.RawMessage) bool {
	return types.IsNull(raw)
}
