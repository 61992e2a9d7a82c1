package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("shelflife: key not found")
	ErrInvalidKey          = errors.New("shelflife: invalid key")
	ErrMalformedEntry      = errors.New("shelflife: malformed entry")
	ErrCorruptBlob         = errors.New("shelflife: corrupt namespace blob")
	ErrStoreUnavailable    = errors.New("shelflife: store unavailable")
	ErrClosed              = errors.New("shelflife: engine closed")
	ErrSerializationFailed = errors.New("shelflife: serialization failed")
)

// CacheError carries the operation, key, and backend a failure belongs
// to. The engine itself degrades silently for backend and data faults;
// CacheError is what store adapters and the diagnostic log channel use
// underneath that surface.
type CacheError struct {
	Op      string
	Key     string
	Backend string
	Err     error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("shelflife %s on %s [%s]: %v", e.Op, e.Backend, e.Key, e.Err)
	}
	return fmt.Sprintf("shelflife %s on %s: %v", e.Op, e.Backend, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func NewCacheError(op, key, backend string, err error) *CacheError {
	return &CacheError{
		Op:      op,
		Key:     key,
		Backend: backend,
		Err:     err,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
