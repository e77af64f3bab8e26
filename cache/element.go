package cache

// element is the immutable key/value record stored in an entry.
// Overwriting a key installs a fresh element; an element is never mutated
// after it has been published to a segment.
type element[K comparable, V any] struct {
	key   K
	value V

	// Absolute expiration deadline in UnixNano.
	// Zero means "no TTL".
	expiresAt int64
}

func newElement[K comparable, V any](k K, v V, expiresAt int64) *element[K, V] {
	return &element[K, V]{key: k, value: v, expiresAt: expiresAt}
}

// expired reports whether the element is stale at now (UnixNano).
func (el *element[K, V]) expired(now int64) bool {
	return el.expiresAt != 0 && now >= el.expiresAt
}
