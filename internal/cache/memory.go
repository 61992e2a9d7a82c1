package cache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"

	"github.com/shelflife/shelflife/internal/config"
	"github.com/shelflife/shelflife/internal/types"
)

// MemoryStore keeps namespace blobs in process memory using BigCache.
// It is the default backend for the short retention class. BigCache
// may drop a blob under memory pressure or after its life window; the
// bridge reads an absent blob as an empty namespace, so eviction here
// loses cached entries but never correctness.
type MemoryStore struct {
	cache  *bigcache.BigCache
	logger *slog.Logger

	closed atomic.Bool
}

// NewMemoryStore creates a memory store with the given configuration.
func NewMemoryStore(cfg config.MemoryStoreConfig, logger *slog.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ms := &MemoryStore{
		logger: logger.With("component", "memory-store"),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.LifeWindow,
		CleanWindow:        cfg.CleanWindow,
		MaxEntriesInWindow: 1000 * 10 * 60, // Estimated entries in LifeWindow
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: logger},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.NoSpace || reason == bigcache.Expired {
				ms.logger.Debug("Namespace blob evicted", "namespace", key, "reason", reason)
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	ms.cache = bc
	return ms, nil
}

// Name returns the store name.
func (s *MemoryStore) Name() string {
	return "memory"
}

// IsAvailable returns true if the store is not closed.
func (s *MemoryStore) IsAvailable() bool {
	return !s.closed.Load()
}

// Read returns the blob stored for the namespace.
func (s *MemoryStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := s.cache.Get(namespace)
	if err != nil {
		if err == bigcache.ErrEntryNotFound {
			return nil, types.ErrNotFound
		}
		return nil, types.NewCacheError("Read", namespace, "memory", err)
	}

	return data, nil
}

// Write stores the blob for the namespace, replacing any previous one.
func (s *MemoryStore) Write(ctx context.Context, namespace string, blob []byte) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	if err := s.cache.Set(namespace, blob); err != nil {
		return types.NewCacheError("Write", namespace, "memory", err)
	}

	return nil
}

// Clear removes the blob for the namespace. Clearing an absent
// namespace is not an error.
func (s *MemoryStore) Clear(ctx context.Context, namespace string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	if err := s.cache.Delete(namespace); err != nil {
		if err != bigcache.ErrEntryNotFound {
			return types.NewCacheError("Clear", namespace, "memory", err)
		}
	}

	return nil
}

// Ping reports whether the store can serve requests.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return nil
}

// Close closes the store and releases its memory.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.cache.Close()
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: "+format, args...)
}

var _ types.Store = (*MemoryStore)(nil)
