package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shelflife/shelflife/internal/config"
	"github.com/shelflife/shelflife/internal/types"
)

const (
	disconnectErrorThreshold = 5
)

// RedisStore keeps namespace blobs in Redis, one string value per
// namespace under the configured key prefix. A broken connection
// degrades the store rather than failing it: operations return
// ErrStoreUnavailable until the connection recovers, and the bridge
// reads that as an empty namespace.
type RedisStore struct {
	client *redis.Client
	config config.RedisStoreConfig
	logger *slog.Logger

	mu            sync.RWMutex
	connected     atomic.Bool
	lastError     error
	lastErrorTime time.Time
	errorCount    atomic.Int64

	heartbeatStopCh chan struct{}
	heartbeatWg     sync.WaitGroup

	closed atomic.Bool
}

// NewRedisStore creates a redis store. A failed initial connection is
// logged but not fatal; the heartbeat worker keeps probing and flips
// the store back to available once Redis answers again.
func NewRedisStore(cfg config.RedisStoreConfig, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
		if cfg.TLSSkipVerify {
			logger.Warn("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	rs := &RedisStore{
		client:          redis.NewClient(opts),
		config:          cfg,
		logger:          logger.With("component", "redis-store"),
		heartbeatStopCh: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), rs.dialTimeout())
	defer cancel()

	if err := rs.client.Ping(ctx).Err(); err != nil {
		rs.logger.Warn("Redis initial connection failed", "error", err)
		rs.setError(err)
		// Don't return error - allow graceful degradation
	} else {
		rs.connected.Store(true)
		rs.logger.Info("Redis connected", "address", cfg.Address)
	}

	if cfg.HeartbeatInterval > 0 {
		rs.heartbeatWg.Add(1)
		go rs.heartbeatWorker()
	}

	return rs, nil
}

func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) IsAvailable() bool {
	return !s.closed.Load() && s.connected.Load()
}

func (s *RedisStore) blobKey(namespace string) string {
	return s.config.KeyPrefix + namespace
}

func (s *RedisStore) dialTimeout() time.Duration {
	if s.config.DialTimeout > 0 {
		return s.config.DialTimeout
	}
	return 5 * time.Second
}

func (s *RedisStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}
	if !s.connected.Load() {
		return nil, types.ErrStoreUnavailable
	}

	data, err := s.client.Get(ctx, s.blobKey(namespace)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, types.ErrNotFound
		}
		s.handleError(err)
		return nil, types.NewCacheError("Read", namespace, "redis", err)
	}

	s.clearError()
	return data, nil
}

// Write stores the blob without a server-side TTL; staleness is
// decided per entry by the engine, not by Redis.
func (s *RedisStore) Write(ctx context.Context, namespace string, blob []byte) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !s.connected.Load() {
		return types.ErrStoreUnavailable
	}

	if err := s.client.Set(ctx, s.blobKey(namespace), blob, 0).Err(); err != nil {
		s.handleError(err)
		return types.NewCacheError("Write", namespace, "redis", err)
	}

	s.clearError()
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, namespace string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !s.connected.Load() {
		return types.ErrStoreUnavailable
	}

	if err := s.client.Del(ctx, s.blobKey(namespace)).Err(); err != nil {
		s.handleError(err)
		return types.NewCacheError("Clear", namespace, "redis", err)
	}

	s.clearError()
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.connected.Store(false)

	close(s.heartbeatStopCh)
	s.heartbeatWg.Wait()

	return s.client.Close()
}

// LastError returns the most recent store error and when it happened.
func (s *RedisStore) LastError() (error, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError, s.lastErrorTime
}

func (s *RedisStore) heartbeatWorker() {
	defer s.heartbeatWg.Done()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.heartbeatStopCh:
			return
		case <-ticker.C:
			s.performHeartbeat()
		}
	}
}

func (s *RedisStore) performHeartbeat() {
	wasConnected := s.connected.Load()

	ctx, cancel := context.WithTimeout(context.Background(), s.dialTimeout())
	defer cancel()

	err := s.client.Ping(ctx).Err()
	if err != nil {
		if wasConnected {
			s.logger.Warn("Redis heartbeat failed", "error", err)
			s.setError(err)
		}
		return
	}

	if !wasConnected {
		s.connected.Store(true)
		s.errorCount.Store(0)
		s.logger.Info("Redis connection restored via heartbeat")
	}
}

func (s *RedisStore) handleError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err
	s.lastErrorTime = time.Now()
	count := s.errorCount.Add(1)

	if count >= disconnectErrorThreshold {
		if s.connected.CompareAndSwap(true, false) {
			s.logger.Warn("Redis marked as disconnected after errors",
				"error_count", count,
				"last_error", err,
			)
		}
	}
}

func (s *RedisStore) clearError() {
	if s.errorCount.Swap(0) > 0 {
		if s.connected.CompareAndSwap(false, true) {
			s.logger.Info("Redis connection restored")
		}
	}
}

func (s *RedisStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastErrorTime = time.Now()
	s.connected.Store(false)
}

var _ types.Store = (*RedisStore)(nil)
