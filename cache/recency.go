package cache

import "sync"

// recencyList is the circular doubly linked list shared by every segment.
// It is anchored by a sentinel header holding no element: header.after is
// the most recently used entry and header.before the least recently used.
// An empty list is a header pointing at itself.
//
// Every splice happens under mu. Segment locks alone cannot protect the list
// because neighbouring entries usually live in other segments.
// Lock order is segment -> list; never acquire a segment lock while holding mu.
type recencyList[K comparable, V any] struct {
	mu     sync.Mutex
	header entry[K, V]
}

func newRecencyList[K comparable, V any]() *recencyList[K, V] {
	l := &recencyList[K, V]{}
	l.header.before = &l.header
	l.header.after = &l.header
	return l
}

// pushFront links a new entry as MRU.
func (l *recencyList[K, V]) pushFront(e *entry[K, V]) {
	l.mu.Lock()
	e.addBefore(l.header.after)
	l.mu.Unlock()
}

func (l *recencyList[K, V]) promoteLocked(e *entry[K, V]) {
	if e == &l.header || !e.linked() || l.header.after == e {
		return
	}
	e.remove()
	e.addBefore(l.header.after)
}

// back returns the least recently used entry, or nil if the list is empty.
func (l *recencyList[K, V]) back() *entry[K, V] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b := l.header.before; b != &l.header {
		return b
	}
	return nil
}

// removeIfBackLocked unlinks e only if it is still the LRU entry.
func (l *recencyList[K, V]) removeIfBackLocked(e *entry[K, V]) bool {
	if l.header.before != e || e == &l.header {
		return false
	}
	e.remove()
	return true
}

// keys returns a snapshot of resident keys ordered from MRU to LRU.
func (l *recencyList[K, V]) keys() []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []K
	for e := l.header.after; e != &l.header; e = e.after {
		out = append(out, e.el.key)
	}
	return out
}

// empty reports whether the header points at itself.
func (l *recencyList[K, V]) empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.header.after == &l.header
}
