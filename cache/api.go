package cache

import (
	"context"
	"time"
)

// Cache is a segmented, in-memory key/value cache with a global LRU bound.
// All methods are safe for concurrent use by multiple goroutines.
//
// Every keyed method returns ErrInvalidKey for a nil key and ErrClosed after
// Close. A miss is not an error: it is reported through the boolean result.
type Cache[K comparable, V any] interface {
	// Get returns the value for k and whether it was present.
	// On hit, the entry becomes the most recently used.
	Get(k K) (V, bool, error)

	// Put inserts or replaces k→v using the cache's DefaultTTL (if any).
	// It returns the previous value and whether one existed. The entry
	// becomes the most recently used; if the cache grows past MaxCapacity
	// the least recently used entry is evicted.
	Put(k K, v V) (V, bool, error)

	// PutWithTTL is Put with a per-key TTL (relative duration).
	// A non-positive ttl disables expiration for this entry.
	PutWithTTL(k K, v V, ttl time.Duration) (V, bool, error)

	// Add inserts k→v only if k is not present.
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) (bool, error)

	// Remove deletes k and returns the removed value, if any.
	Remove(k K) (V, bool, error)

	// ContainsKey reports whether k is present without touching recency order.
	ContainsKey(k K) (bool, error)

	// Len returns the number of resident entries across all segments.
	// It is a best-effort snapshot under concurrent mutation.
	Len() int

	// IsEmpty reports whether no entry is resident.
	IsEmpty() bool

	// Clear removes every entry. OnEvict observes them with EvictClear.
	Clear()

	// Keys returns resident keys ordered from most to least recently used.
	Keys() []K

	// Stats returns hit/miss/eviction counters and table occupancy.
	Stats() Stats

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close marks the cache closed. Subsequent operations return ErrClosed.
	Close() error
}
