package shelflife

import (
	"github.com/shelflife/shelflife/internal/types"
)

// CacheError represents a cache operation error.
type CacheError = types.CacheError

var (
	// ErrNotFound indicates that a requested key was not found.
	ErrNotFound = types.ErrNotFound
	// ErrInvalidKey indicates that a cache key is invalid.
	ErrInvalidKey = types.ErrInvalidKey
	// ErrMalformedEntry indicates that a persisted entry is structurally invalid.
	ErrMalformedEntry = types.ErrMalformedEntry
	// ErrCorruptBlob indicates that a namespace blob could not be decoded.
	ErrCorruptBlob = types.ErrCorruptBlob
	// ErrStoreUnavailable indicates that a backend store is not available.
	ErrStoreUnavailable = types.ErrStoreUnavailable
	// ErrClosed indicates that the cache has been closed.
	ErrClosed = types.ErrClosed
	// ErrSerializationFailed indicates that serialization failed.
	ErrSerializationFailed = types.ErrSerializationFailed
)

// NewCacheError creates a new cache error with operation, key, backend, and underlying error.
func NewCacheError(op, key, backend string, err error) *CacheError {
	return types.NewCacheError(op, key, backend, err)
}

// IsNotFound returns true if the error is a missing-key error.
func IsNotFound(err error) bool {
	return types.IsNotFound(err)
}

// IsInvalidKey returns true if the error is an invalid-key error.
func IsInvalidKey(err error) bool {
	return types.IsInvalidKey(err)
}

// IsStoreUnavailable returns true if the error indicates a backend is unavailable.
func IsStoreUnavailable(err error) bool {
	return types.IsStoreUnavailable(err)
}

// IsClosed returns true if the error indicates the cache has been closed.
func IsClosed(err error) bool {
	return types.IsClosed(err)
}
