package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shelflife/shelflife/internal/config"
	"github.com/shelflife/shelflife/internal/types"
)

// Engine coordinates the in-memory index and the two backend stores.
// It is the write-through core: every mutation lands in the index and
// its backend within the same call, and every lookup settles the key's
// state (fresh, stale, or absent) before returning.
type Engine struct {
	index      *Index
	bridge     *Bridge
	short      types.Store
	long       types.Store
	ownsStores bool

	config       *config.Config
	serializer   types.Serializer
	metrics      types.MetricsRecorder
	logger       *slog.Logger
	keyValidator *types.KeyValidator
	clock        func() time.Time

	// storeMu serializes read-merge-write cycles against the backends
	// so concurrent mutations within this instance cannot lose updates.
	// Fresh index hits bypass it entirely.
	storeMu   sync.Mutex
	sfRefresh singleflight.Group
	sfCreate  singleflight.Group
	closed    atomic.Bool
}

// NewEngine creates an engine over the two given stores. The caller
// keeps ownership of the stores and is responsible for closing them.
// Zero or missing core settings fall back to defaults.
func NewEngine(short, long types.Store, cfg *config.Config, opts *types.EngineOptions) (*Engine, error) {
	if short == nil || long == nil {
		return nil, errors.New("cache: both stores are required")
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultNamespace
	}
	if cfg.ShortTTL <= 0 {
		cfg.ShortTTL = 24 * time.Hour
	}
	if cfg.LongTTL <= 0 {
		cfg.LongTTL = 30 * 24 * time.Hour
	}

	logger := slog.Default()
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	}
	logger = logger.With("component", "cache-engine")

	e := &Engine{
		index:      NewIndex(),
		short:      short,
		long:       long,
		config:     cfg,
		serializer: NewJSONSerializer(),
		logger:     logger,
		clock:      time.Now,
	}

	if opts != nil {
		if opts.Serializer != nil {
			e.serializer = opts.Serializer
		}
		if opts.Metrics != nil {
			e.metrics = opts.Metrics
		}
		if opts.Clock != nil {
			e.clock = opts.Clock
		}
	}

	if cfg.KeyValidation.Enabled {
		e.keyValidator = types.NewKeyValidator(cfg.KeyValidation.ToTypesConfig())
	}

	e.bridge = NewBridge(short, long, cfg.Namespace, e.serializer, logger, e.metrics)

	return e, nil
}

// NewEngineFromConfig validates the configuration, builds both backend
// stores from it, and returns an engine that owns them: Close closes
// the stores too.
func NewEngineFromConfig(cfg *config.Config, opts *types.EngineOptions) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default()
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	}

	short, err := buildStore(cfg.Short, logger)
	if err != nil {
		return nil, fmt.Errorf("short store: %w", err)
	}

	long, err := buildStore(cfg.Long, logger)
	if err != nil {
		_ = short.Close()
		return nil, fmt.Errorf("long store: %w", err)
	}

	e, err := NewEngine(short, long, cfg, opts)
	if err != nil {
		_ = short.Close()
		_ = long.Close()
		return nil, err
	}

	e.ownsStores = true
	return e, nil
}

// buildStore constructs one backend store from its configuration.
func buildStore(cfg config.StoreConfig, logger *slog.Logger) (types.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(cfg.Memory, logger)
	case config.BackendBolt:
		return NewBoltStore(cfg.Bolt, logger)
	case config.BackendRedis:
		return NewRedisStore(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// GetRaw looks up key and returns its raw JSON value, settling the
// entry's state on the way: fresh entries are served from the index,
// stale ones are refreshed from their backend, absent ones are loaded
// from a backend or synthesized as null. Invalid keys return null
// without touching any state.
func (e *Engine) GetRaw(ctx context.Context, key string) (json.RawMessage, error) {
	if e.closed.Load() {
		return nil, types.ErrClosed
	}

	if err := e.validateKey(key); err != nil {
		e.logger.Debug("Rejecting invalid key", "error", err)
		return types.Null, nil
	}

	start := time.Now()

	if entry, ok := e.index.Get(key); ok && !entry.Stale(e.clock()) {
		if e.metrics != nil {
			e.metrics.RecordHit(entry.Retention.String(), time.Since(start))
		}
		return entry.Value, nil
	}

	// Concurrent lookups of one key share a single settlement.
	result, err, _ := e.sfRefresh.Do(key, func() (any, error) {
		return e.getSlow(ctx, key), nil
	})
	if err != nil {
		return nil, err
	}

	entry, ok := result.(types.Entry)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	return entry.Value, nil
}

// getSlow settles a key that is not fresh in the index. It runs inside
// singleflight; metrics for the settled state are recorded here, once
// per flight.
func (e *Engine) getSlow(ctx context.Context, key string) types.Entry {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	start := time.Now()
	now := e.clock()

	entry, ok := e.index.Get(key)
	if ok && !entry.Stale(now) {
		// Another flight settled the key while we waited for the lock.
		if e.metrics != nil {
			e.metrics.RecordHit(entry.Retention.String(), time.Since(start))
		}
		return entry
	}

	if !ok {
		loaded, found := e.bridge.LoadEntry(ctx, key, types.RetentionShort)
		if !found && e.config.LookupFallback {
			loaded, found = e.bridge.LoadEntry(ctx, key, types.RetentionLong)
		}
		if !found {
			// Total miss. The synthesized null enters the index but is
			// not written through; it only reaches a backend if a later
			// refresh or set persists it.
			synth := types.Entry{
				Key:       key,
				Value:     types.Null,
				ExpiresAt: types.Expiry(now, e.config.ShortTTL),
				Retention: types.RetentionShort,
			}
			e.index.Put(synth)
			e.logger.Debug("Synthesized null entry", "key", key)
			if e.metrics != nil {
				e.metrics.RecordSynthesized(time.Since(start))
			}
			return synth.Clone()
		}

		e.index.Put(loaded)
		entry = loaded
		if !entry.Stale(now) {
			if e.metrics != nil {
				e.metrics.RecordRefresh(entry.Retention.String(), time.Since(start))
			}
			return entry
		}
		// The backend copy is already past its expiry; it leaves fresh
		// through the stale path below.
	}

	return e.refreshStale(ctx, key, entry, now, start)
}

// refreshStale refreshes a stale entry from its own-class backend. The
// backend copy's value wins when one exists; the expiry is always
// recomputed from the entry's own TTL, so the entry leaves fresh. The
// refreshed entry is written through, even if it was never persisted
// before.
func (e *Engine) refreshStale(ctx context.Context, key string, entry types.Entry, now time.Time, start time.Time) types.Entry {
	if fromStore, found := e.bridge.LoadEntry(ctx, key, entry.Retention); found {
		entry.Value = fromStore.Value
	}

	entry.ExpiresAt = types.Expiry(now, e.config.TTLFor(entry.Retention))
	e.index.Put(entry)
	e.bridge.SaveEntry(ctx, entry)

	if e.metrics != nil {
		e.metrics.RecordRefresh(entry.Retention.String(), time.Since(start))
	}

	return entry
}

// Get looks up key and decodes its value into dest. Keys that are
// absent everywhere decode the null sentinel, so pointer destinations
// come back nil rather than erroring.
func (e *Engine) Get(ctx context.Context, key string, dest any) error {
	raw, err := e.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	return e.serializer.Unmarshal(raw, dest)
}

// Set stores value under key, writing through to the backend matching
// the entry's retention class. An existing entry keeps its class unless
// the call requests one; a class change deletes the entry from its old
// backend before the new backend is written, so a key never lives in
// both.
func (e *Engine) Set(ctx context.Context, key string, value any, opts ...types.Option) error {
	if e.closed.Load() {
		return types.ErrClosed
	}

	if err := e.validateKey(key); err != nil {
		e.logger.Debug("Rejecting invalid key", "error", err)
		return nil
	}

	start := time.Now()
	options := types.ApplyOptions(opts...)

	data, err := e.serializer.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrSerializationFailed, err)
	}

	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	class := e.resolveClass(ctx, key, options.Retention)

	entry := types.Entry{
		Key:       key,
		Value:     data,
		ExpiresAt: types.Expiry(e.clock(), e.config.TTLFor(class)),
		Retention: class,
	}

	e.index.Put(entry)
	e.bridge.SaveEntry(ctx, entry)

	if e.metrics != nil {
		e.metrics.RecordSet(class.String(), len(data), time.Since(start))
	}

	return nil
}

// resolveClass decides the retention class for a write and clears the
// old backend when the class changes. Must be called under storeMu.
func (e *Engine) resolveClass(ctx context.Context, key string, requested types.Retention) types.Retention {
	current, exists := e.index.Get(key)

	switch {
	case exists && !requested.Valid():
		return current.Retention
	case exists && requested != current.Retention:
		// The entry moves between backends: the old copy goes first so
		// the key never lives in both.
		e.bridge.DeleteEntry(ctx, key, current.Retention)
		return requested
	case exists:
		return current.Retention
	case requested.Valid():
		return requested
	default:
		return types.RetentionShort
	}
}

// SetMany stores multiple values in one pass, touching each backend
// blob at most once. Class resolution follows Set, entry by entry.
// Invalid keys are skipped silently; an unserializable value fails the
// whole batch before anything is written.
func (e *Engine) SetMany(ctx context.Context, items map[string]any, opts ...types.Option) error {
	if e.closed.Load() {
		return types.ErrClosed
	}

	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	options := types.ApplyOptions(opts...)

	encoded := make(map[string]json.RawMessage, len(items))
	for key, value := range items {
		if err := e.validateKey(key); err != nil {
			e.logger.Debug("Rejecting invalid key", "error", err)
			continue
		}
		data, err := e.serializer.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: key %q: %w", types.ErrSerializationFailed, key, err)
		}
		encoded[key] = data
	}

	if len(encoded) == 0 {
		return nil
	}

	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	now := e.clock()
	upserts := make(map[types.Retention][]types.Entry)
	removals := make(map[types.Retention][]string)

	for key, data := range encoded {
		current, exists := e.index.Get(key)

		class := options.Retention
		switch {
		case exists && !class.Valid():
			class = current.Retention
		case exists && class != current.Retention:
			removals[current.Retention] = append(removals[current.Retention], key)
		case !exists && !class.Valid():
			class = types.RetentionShort
		}

		entry := types.Entry{
			Key:       key,
			Value:     data,
			ExpiresAt: types.Expiry(now, e.config.TTLFor(class)),
			Retention: class,
		}

		e.index.Put(entry)
		upserts[class] = append(upserts[class], entry)
	}

	for _, class := range []types.Retention{types.RetentionShort, types.RetentionLong} {
		if len(removals[class]) > 0 || len(upserts[class]) > 0 {
			e.bridge.Apply(ctx, class, removals[class], upserts[class])
		}
	}

	if e.metrics != nil {
		latency := time.Since(start)
		for class, entries := range upserts {
			for _, entry := range entries {
				e.metrics.RecordSet(class.String(), len(entry.Value), latency)
			}
		}
	}

	return nil
}

// Delete removes key from the index and from its backend. The backend
// is picked from the indexed entry's class; deleting an unindexed key
// touches no backend.
func (e *Engine) Delete(ctx context.Context, key string) error {
	if e.closed.Load() {
		return types.ErrClosed
	}

	if err := e.validateKey(key); err != nil {
		e.logger.Debug("Rejecting invalid key", "error", err)
		return nil
	}

	start := time.Now()

	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	entry, ok := e.index.Get(key)
	if ok {
		e.bridge.DeleteEntry(ctx, key, entry.Retention)
	}
	e.index.Remove(key)

	if e.metrics != nil {
		e.metrics.RecordDelete(entry.Retention.String(), time.Since(start))
	}

	return nil
}

// GetOrCreate returns the value for key, invoking factory to produce
// and store it when the key is absent everywhere. Concurrent calls for
// the same key share one factory invocation. A legitimately cached
// null is indistinguishable from absence here, so the factory runs
// again in that case.
func (e *Engine) GetOrCreate(ctx context.Context, key string, dest any, factory func() (any, error), opts ...types.Option) error {
	if e.closed.Load() {
		return types.ErrClosed
	}

	raw, err := e.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	if !types.IsNull(raw) {
		return e.serializer.Unmarshal(raw, dest)
	}

	result, err, _ := e.sfCreate.Do(key, func() (any, error) {
		check, checkErr := e.GetRaw(ctx, key)
		if checkErr != nil {
			return nil, checkErr
		}
		if !types.IsNull(check) {
			return check, nil
		}

		value, factoryErr := factory()
		if factoryErr != nil {
			return nil, factoryErr
		}

		if setErr := e.Set(ctx, key, value, opts...); setErr != nil {
			return nil, setErr
		}

		stored, getErr := e.GetRaw(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		return stored, nil
	})
	if err != nil {
		return err
	}

	raw, ok := result.(json.RawMessage)
	if !ok {
		return fmt.Errorf("unexpected result type: %T", result)
	}

	return e.serializer.Unmarshal(raw, dest)
}

// List returns every indexed key with its value, settling each entry
// the same way Get does: stale entries are refreshed on the way out.
func (e *Engine) List(ctx context.Context) (map[string]json.RawMessage, error) {
	if e.closed.Load() {
		return nil, types.ErrClosed
	}

	keys := e.index.Keys()
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		raw, err := e.GetRaw(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}

	return out, nil
}

// Keys returns the indexed keys in sorted order.
func (e *Engine) Keys(ctx context.Context) []string {
	if e.closed.Load() {
		return nil
	}

	keys := e.index.Keys()
	sort.Strings(keys)
	return keys
}

// Contains reports whether key is currently indexed. It peeks at the
// index only: no backend is consulted and staleness is not settled.
func (e *Engine) Contains(ctx context.Context, key string) bool {
	if e.closed.Load() {
		return false
	}
	if err := e.validateKey(key); err != nil {
		return false
	}

	_, ok := e.index.Get(key)
	return ok
}

// Clear wipes the namespace from both backends and resets the index.
func (e *Engine) Clear(ctx context.Context) error {
	if e.closed.Load() {
		return types.ErrClosed
	}

	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	e.bridge.Wipe(ctx)
	e.index.Reset()

	if e.metrics != nil {
		e.metrics.RecordWipe()
	}

	e.logger.Info("Cache cleared", "namespace", e.config.Namespace)
	return nil
}

// Stats returns a snapshot of the metrics counters. The index size is
// populated even when metrics are disabled.
func (e *Engine) Stats() types.MetricsSnapshot {
	var snap types.MetricsSnapshot
	if e.metrics != nil {
		snap = e.metrics.Snapshot()
	} else {
		snap.Timestamp = time.Now()
	}
	snap.IndexEntries = e.index.Len()
	return snap
}

// Health probes both stores and reports per-store and overall status.
func (e *Engine) Health(ctx context.Context) (*types.EngineHealth, error) {
	if e.closed.Load() {
		return nil, types.ErrClosed
	}

	health := &types.EngineHealth{
		Timestamp:    time.Now(),
		Short:        e.probeStore(ctx, e.short),
		Long:         e.probeStore(ctx, e.long),
		IndexEntries: e.index.Len(),
	}

	switch {
	case health.Short.Status == types.HealthStatusHealthy && health.Long.Status == types.HealthStatusHealthy:
		health.Status = types.HealthStatusHealthy
	case health.Short.Status == types.HealthStatusHealthy || health.Long.Status == types.HealthStatusHealthy:
		health.Status = types.HealthStatusDegraded
	default:
		health.Status = types.HealthStatusUnhealthy
	}

	return health, nil
}

func (e *Engine) probeStore(ctx context.Context, store types.Store) types.StoreHealth {
	sh := types.StoreHealth{
		Name:      store.Name(),
		Available: store.IsAvailable(),
		Status:    types.HealthStatusHealthy,
	}

	start := time.Now()
	if err := store.Ping(ctx); err != nil {
		sh.Error = err.Error()
		sh.Status = types.HealthStatusUnhealthy
		sh.Available = false
	}
	sh.Latency = time.Since(start)

	return sh
}

// IsHealthy returns true when the engine is open and both stores are
// available.
func (e *Engine) IsHealthy(ctx context.Context) bool {
	return !e.closed.Load() && e.short.IsAvailable() && e.long.IsAvailable()
}

// Close marks the engine closed. Stores are closed only when the
// engine built them itself; injected stores stay open for their owner.
// Close is idempotent.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	e.logger.Info("Closing cache engine")

	if !e.ownsStores {
		return nil
	}

	var errs []error
	if err := e.short.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.long.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateKey rejects the empty key even when configured validation is
// off; an empty id is untypeable in the blob format.
func (e *Engine) validateKey(key string) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	if e.keyValidator == nil {
		return nil
	}
	return e.keyValidator.Validate(key)
}
