// Package types provides shared types for the shelflife cache library.
// This package breaks import cycles between pkg/shelflife and internal/cache.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Retention selects which of the two backends persists an entry.
// The zero value means "unspecified" so callers can omit it and let
// the engine pick a default.
type Retention int

const (
	RetentionShort Retention = iota + 1
	RetentionLong
)

func (r Retention) String() string {
	switch r {
	case RetentionShort:
		return "short"
	case RetentionLong:
		return "long"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the two declared classes.
func (r Retention) Valid() bool {
	return r == RetentionShort || r == RetentionLong
}

// Opposite returns the other retention class. Only meaningful for
// valid classes; returns the zero value otherwise.
func (r Retention) Opposite() Retention {
	switch r {
	case RetentionShort:
		return RetentionLong
	case RetentionLong:
		return RetentionShort
	default:
		return 0
	}
}

// MarshalJSON encodes the class name, keeping blobs readable and
// portable across implementations.
func (r Retention) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts "short" or "long". Any other string decodes to
// the zero value without error so that a single bad record cannot sink
// the entry it belongs to at a coarser stage than the well-formedness
// check.
func (r *Retention) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	switch name {
	case "short":
		*r = RetentionShort
	case "long":
		*r = RetentionLong
	default:
		*r = 0
	}
	return nil
}

// Null is the JSON null sentinel used for "empty" values. It is a
// present value, distinct from an absent one (a nil RawMessage).
var Null = json.RawMessage("null")

// IsNull reports whether raw holds the JSON null sentinel.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Entry is the unit of caching: one key, its encoded value, the absolute
// expiry timestamp, and the retention class that selects its backend.
// The JSON field names are the blob wire format shared by both stores.
type Entry struct {
	Key       string          `json:"id"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt int64           `json:"expires"`
	Retention Retention       `json:"retention"`
}

// Wellformed reports whether all four fields are present and usable.
// A JSON null Value is well-formed; a missing one (nil) is not.
// Ill-formed entries are treated as absent everywhere: never surfaced,
// never persisted.
func (e Entry) Wellformed() bool {
	return e.Key != "" && e.Value != nil && e.ExpiresAt > 0 && e.Retention.Valid()
}

// Stale reports whether the entry's expiry has passed at the given
// instant. The comparison is strict: an entry expiring exactly now is
// still fresh.
func (e Entry) Stale(now time.Time) bool {
	return e.ExpiresAt < now.UnixMilli()
}

// Clone returns a copy whose Value does not share backing storage with
// the receiver.
func (e Entry) Clone() Entry {
	c := e
	if e.Value != nil {
		c.Value = append(json.RawMessage(nil), e.Value...)
	}
	return c
}

// Expiry computes an absolute expiry timestamp ttl past now, in Unix
// milliseconds.
func Expiry(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).UnixMilli()
}
