package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/shelflife/shelflife/internal/config"
	"github.com/shelflife/shelflife/internal/types"
)

// BoltStore persists namespace blobs in a bbolt database file. It is
// the default backend for the long retention class: blobs survive
// process restarts and are read back on the next lookup.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte

	closed atomic.Bool
}

// NewBoltStore opens (or creates) the database file and ensures the
// configured bucket exists.
func NewBoltStore(cfg config.BoltStoreConfig, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, types.NewCacheError("Open", cfg.Path, "bolt", err)
	}

	bucket := []byte(cfg.Bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, types.NewCacheError("Open", cfg.Bucket, "bolt", err)
	}

	logger.Debug("Opened bolt database", "path", cfg.Path, "bucket", cfg.Bucket)

	return &BoltStore{
		db:     db,
		bucket: bucket,
	}, nil
}

// Name returns the store name.
func (s *BoltStore) Name() string {
	return "bolt"
}

// IsAvailable returns true if the store is not closed.
func (s *BoltStore) IsAvailable() bool {
	return !s.closed.Load()
}

// Read returns the blob stored for the namespace.
func (s *BoltStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(namespace))
		if v == nil {
			return types.ErrNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.ErrNotFound
		}
		return nil, types.NewCacheError("Read", namespace, "bolt", err)
	}

	return out, nil
}

// Write stores the blob for the namespace, replacing any previous one.
func (s *BoltStore) Write(ctx context.Context, namespace string, blob []byte) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(namespace), blob)
	})
	if err != nil {
		return types.NewCacheError("Write", namespace, "bolt", err)
	}

	return nil
}

// Clear removes the blob for the namespace. Clearing an absent
// namespace is not an error.
func (s *BoltStore) Clear(ctx context.Context, namespace string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(namespace))
	})
	if err != nil {
		return types.NewCacheError("Clear", namespace, "bolt", err)
	}

	return nil
}

// Ping verifies the bucket is still reachable.
func (s *BoltStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return types.ErrStoreUnavailable
		}
		return nil
	})
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

var _ types.Store = (*BoltStore)(nil)
