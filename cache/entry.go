package cache

// entry is a hash-bucket chain node that is also a node of the cache-wide
// recency list. One entry exists per resident key.
//
// Field ownership:
//   - el, next: guarded by the owning segment's lock (el is also swapped
//     under the recency list lock so list walkers can read it).
//   - before, after: guarded by recencyList.mu.
//   - hash: immutable.
type entry[K comparable, V any] struct {
	el   *element[K, V] // nil only for the list header
	hash uint64
	next *entry[K, V]

	// Recency links. Walking header.after -> ... -> header visits entries
	// from most to least recently used. Nil while unlinked.
	before *entry[K, V]
	after  *entry[K, V]
}

func (e *entry[K, V]) matches(key K, hash uint64) bool {
	return e.hash == hash && e.el.key == key
}

// linked reports whether the entry is currently on the recency list.
func (e *entry[K, V]) linked() bool { return e.before != nil }

// addBefore splices e into the list immediately before existing.
// Caller holds recencyList.mu.
func (e *entry[K, V]) addBefore(existing *entry[K, V]) {
	e.after = existing
	e.before = existing.before
	e.before.after = e
	e.after.before = e
}

// remove unlinks e so that its neighbours point at each other.
// Caller holds recencyList.mu.
func (e *entry[K, V]) remove() {
	e.before.after = e.after
	e.after.before = e.before
	e.before, e.after = nil, nil
}

// recordAccess moves e to the MRU slot (right after the header).
func (e *entry[K, V]) recordAccess(l *recencyList[K, V]) {
	l.mu.Lock()
	l.promoteLocked(e)
	l.mu.Unlock()
}

// recordRemoval unlinks e from the recency list only; bucket-chain unlinking
// is the segment's job.
func (e *entry[K, V]) recordRemoval(l *recencyList[K, V]) {
	l.mu.Lock()
	if e != &l.header && e.linked() {
		e.remove()
	}
	l.mu.Unlock()
}

// replace installs el and promotes e, returning the previous element.
func (e *entry[K, V]) replace(el *element[K, V], l *recencyList[K, V]) *element[K, V] {
	l.mu.Lock()
	old := e.el
	e.el = el
	l.promoteLocked(e)
	l.mu.Unlock()
	return old
}
