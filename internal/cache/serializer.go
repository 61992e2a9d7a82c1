package cache

import (
	"encoding/json"

	"github.com/shelflife/shelflife/internal/types"
)

// JSONSerializer implements Serializer using JSON encoding. It is the
// default codec for both namespace blobs and caller values; the
// "absent or corrupt blob decodes to an empty mapping" rule is bridge
// policy layered on top, so the serializer stays a plain codec.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Marshal serializes a value to JSON bytes.
func (s *JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON bytes into the destination.
func (s *JSONSerializer) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

var _ types.Serializer = (*JSONSerializer)(nil)
