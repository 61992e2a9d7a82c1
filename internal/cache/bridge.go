package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shelflife/shelflife/internal/types"
)

// Bridge translates entry-level operations into whole-blob
// read-merge-write cycles against the two backend stores. Both stores
// keep their entries under the same namespace key but never share
// them.
//
// The bridge itself takes no locks: the engine serializes
// read-merge-write cycles per instance, and across instances the last
// write wins (documented lost-update hazard). Store and decode
// failures never propagate; absent and corrupt blobs decode to an
// empty mapping, malformed entries are skipped.
type Bridge struct {
	short     types.Store
	long      types.Store
	namespace string
	ser       types.Serializer
	logger    *slog.Logger
	metrics   types.MetricsRecorder
}

// NewBridge creates a bridge over the two stores. metrics may be nil.
func NewBridge(short, long types.Store, namespace string, ser types.Serializer, logger *slog.Logger, metrics types.MetricsRecorder) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		short:     short,
		long:      long,
		namespace: namespace,
		ser:       ser,
		logger:    logger.With("component", "backend-bridge"),
		metrics:   metrics,
	}
}

func (b *Bridge) storeFor(r types.Retention) types.Store {
	if r == types.RetentionLong {
		return b.long
	}
	return b.short
}

// LoadEntry returns the entry for key from the store matching the
// retention class, or absent when the blob or the entry is missing,
// corrupt, or malformed.
func (b *Bridge) LoadEntry(ctx context.Context, key string, r types.Retention) (types.Entry, bool) {
	entries := b.load(ctx, r)
	entry, ok := entries[key]
	if !ok {
		return types.Entry{}, false
	}
	return entry, true
}

// SaveEntry merges the entry into the namespace blob of its own
// retention class and writes the whole blob back in one write.
// Ill-formed entries are silently rejected.
func (b *Bridge) SaveEntry(ctx context.Context, entry types.Entry) {
	if !entry.Wellformed() {
		b.logger.Debug("Rejecting ill-formed entry", "key", entry.Key)
		return
	}
	b.Apply(ctx, entry.Retention, nil, []types.Entry{entry})
}

// DeleteEntry removes key from the namespace blob of the given class.
// When the key is absent nothing is written.
func (b *Bridge) DeleteEntry(ctx context.Context, key string, r types.Retention) {
	b.Apply(ctx, r, []string{key}, nil)
}

// Apply merges removals and upserts for one retention class into its
// namespace blob with at most a single write. Ill-formed entries are
// skipped; when nothing changes, nothing is written.
func (b *Bridge) Apply(ctx context.Context, r types.Retention, removeKeys []string, entries []types.Entry) {
	m := b.load(ctx, r)

	dirty := false
	for _, key := range removeKeys {
		if _, ok := m[key]; ok {
			delete(m, key)
			dirty = true
		}
	}
	for _, entry := range entries {
		if !entry.Wellformed() {
			continue
		}
		m[entry.Key] = entry
		dirty = true
	}

	if !dirty {
		return
	}
	b.write(ctx, r, m)
}

// Wipe removes the namespace blob from both stores unconditionally.
func (b *Bridge) Wipe(ctx context.Context) {
	for _, store := range []types.Store{b.short, b.long} {
		if err := store.Clear(ctx, b.namespace); err != nil {
			b.logger.Warn("Backend clear failed",
				"backend", store.Name(),
				"namespace", b.namespace,
				"error", err,
			)
			b.recordError(store.Name(), "clear", err)
		}
	}
}

// load reads and decodes the namespace blob for the given class.
// Absent, unreadable, and corrupt blobs all yield an empty mapping.
func (b *Bridge) load(ctx context.Context, r types.Retention) map[string]types.Entry {
	store := b.storeFor(r)

	data, err := store.Read(ctx, b.namespace)
	if err != nil {
		if !types.IsNotFound(err) {
			b.logger.Warn("Backend read failed, treating namespace as empty",
				"backend", store.Name(),
				"namespace", b.namespace,
				"error", err,
			)
			b.recordError(store.Name(), "read", err)
		}
		return make(map[string]types.Entry)
	}

	return b.decodeBlob(data, store.Name())
}

// decodeBlob decodes in two stages: the blob into raw per-key records
// (failure means the whole blob is corrupt and counts as empty), then
// each record into an Entry (failure skips just that record).
func (b *Bridge) decodeBlob(data []byte, backend string) map[string]types.Entry {
	entries := make(map[string]types.Entry)
	if len(data) == 0 {
		return entries
	}

	var raw map[string]json.RawMessage
	if err := b.ser.Unmarshal(data, &raw); err != nil {
		b.logger.Warn("Corrupt namespace blob, treating as empty",
			"backend", backend,
			"namespace", b.namespace,
			"error", err,
		)
		b.recordError(backend, "decode", types.ErrCorruptBlob)
		return entries
	}

	for key, rawEntry := range raw {
		var entry types.Entry
		if err := b.ser.Unmarshal(rawEntry, &entry); err != nil {
			b.logger.Debug("Skipping malformed entry", "backend", backend, "key", key, "error", err)
			continue
		}
		if !entry.Wellformed() || entry.Key != key {
			b.logger.Debug("Skipping malformed entry", "backend", backend, "key", key)
			continue
		}
		entries[key] = entry
	}

	return entries
}

func (b *Bridge) write(ctx context.Context, r types.Retention, entries map[string]types.Entry) {
	store := b.storeFor(r)

	data, err := b.ser.Marshal(entries)
	if err != nil {
		b.logger.Warn("Failed to encode namespace blob",
			"backend", store.Name(),
			"namespace", b.namespace,
			"error", err,
		)
		b.recordError(store.Name(), "encode", err)
		return
	}

	if err := store.Write(ctx, b.namespace, data); err != nil {
		b.logger.Warn("Backend write failed",
			"backend", store.Name(),
			"namespace", b.namespace,
			"error", err,
		)
		b.recordError(store.Name(), "write", err)
	}
}

func (b *Bridge) recordError(backend, op string, err error) {
	if b.metrics != nil {
		b.metrics.RecordError(backend, op, err)
	}
}
