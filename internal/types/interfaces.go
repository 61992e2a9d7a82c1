package types

import (
	"context"
	"time"
)

// StoreReader reads a whole namespace blob. Absence is reported as
// ErrNotFound, never as a nil blob.
type StoreReader interface {
	Read(ctx context.Context, namespace string) ([]byte, error)
}

// StoreWriter writes or removes a whole namespace blob. Clear of an
// absent namespace is a no-op, not an error.
type StoreWriter interface {
	Write(ctx context.Context, namespace string, blob []byte) error
	Clear(ctx context.Context, namespace string) error
}

type StoreInfo interface {
	Name() string
	IsAvailable() bool
}

type StorePinger interface {
	Ping(ctx context.Context) error
}

type StoreCloser interface {
	Close() error
}

// Store is the key-value contract the engine requires twice: once as
// short-lived storage and once as long-lived storage. The engine never
// assumes exclusive access to a store beyond a single call.
type Store interface {
	StoreInfo
	StoreReader
	StoreWriter
	StorePinger
	StoreCloser
}

type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, dest interface{}) error
}

type MetricsRecorder interface {
	RecordHit(class string, latency time.Duration)
	RecordRefresh(class string, latency time.Duration)
	RecordSynthesized(latency time.Duration)
	RecordSet(class string, size int, latency time.Duration)
	RecordDelete(class string, latency time.Duration)
	RecordWipe()
	RecordError(backend string, operation string, err error)
	Snapshot() MetricsSnapshot
	Reset()
}
