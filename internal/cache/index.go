package cache

import (
	"sync"

	"github.com/shelflife/shelflife/internal/types"
)

// Index is the in-memory fast path: a mapping from key to Entry owned
// exclusively by one engine instance. It never evicts on its own;
// entries enter on access or set and leave only on explicit delete or
// a full reset.
type Index struct {
	mu      sync.RWMutex
	entries map[string]types.Entry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		entries: make(map[string]types.Entry),
	}
}

// Get returns the well-formed entry for key. Missing and ill-formed
// entries both report absent. The returned entry does not share value
// storage with the index.
func (i *Index) Get(key string) (types.Entry, bool) {
	i.mu.RLock()
	entry, ok := i.entries[key]
	i.mu.RUnlock()

	if !ok || !entry.Wellformed() {
		return types.Entry{}, false
	}
	return entry.Clone(), true
}

// Put stores the entry keyed by its Key. Ill-formed entries are
// rejected as a no-op.
func (i *Index) Put(entry types.Entry) {
	if !entry.Wellformed() {
		return
	}

	i.mu.Lock()
	i.entries[entry.Key] = entry.Clone()
	i.mu.Unlock()
}

// Remove deletes the mapping for key if present.
func (i *Index) Remove(key string) {
	i.mu.Lock()
	delete(i.entries, key)
	i.mu.Unlock()
}

// Reset replaces the index with a new empty mapping.
func (i *Index) Reset() {
	i.mu.Lock()
	i.entries = make(map[string]types.Entry)
	i.mu.Unlock()
}

// Len returns the number of indexed entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Keys returns a snapshot of all indexed keys in no particular order.
func (i *Index) Keys() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := make([]string, 0, len(i.entries))
	for key := range i.entries {
		keys = append(keys, key)
	}
	return keys
}
