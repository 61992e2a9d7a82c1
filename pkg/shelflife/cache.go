package shelflife

import (
	"context"
	"encoding/json"
)

// Cache is the public surface of the shelflife engine. All methods are
// safe for concurrent use.
type Cache interface {
	// GetRaw returns the raw JSON value for key, settling its state on
	// the way: fresh entries come from the index, stale ones are
	// refreshed from their backend, unknown ones settle as JSON null.
	GetRaw(ctx context.Context, key string) (json.RawMessage, error)
	// Get is GetRaw decoded into dest.
	Get(ctx context.Context, key string, dest any) error
	// Set writes value through to the index and the entry's backend.
	Set(ctx context.Context, key string, value any, opts ...Option) error
	// SetMany writes a batch through with one blob write per touched
	// backend.
	SetMany(ctx context.Context, items map[string]any, opts ...Option) error
	// GetOrCreate returns the cached value, or runs factory exactly once
	// per flight and writes its result through.
	GetOrCreate(ctx context.Context, key string, dest any, factory func() (any, error), opts ...Option) error
	// Delete removes key from the index and its backend. Unknown keys
	// are a no-op.
	Delete(ctx context.Context, key string) error
	// List returns every indexed key with its settled value.
	List(ctx context.Context) (map[string]json.RawMessage, error)
	// Keys returns a sorted snapshot of the indexed keys.
	Keys(ctx context.Context) []string
	// Contains reports whether key is indexed, without side effects.
	Contains(ctx context.Context, key string) bool
	// Clear wipes the namespace from both backends and resets the index.
	Clear(ctx context.Context) error
	// Stats returns the current metrics snapshot.
	Stats() MetricsSnapshot
	// Health probes both stores and reports per-store and overall status.
	Health(ctx context.Context) (*EngineHealth, error)
	// IsHealthy reports whether the cache is open and both stores are
	// available.
	IsHealthy(ctx context.Context) bool
	// Close shuts the cache down. Further operations return ErrClosed.
	Close() error
}
