package cache

import (
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/segcache/internal/util"
	"github.com/sirupsen/logrus"
)

// segment is an independently locked shard of the cache's hash table.
// It owns a power-of-two bucket array of separately chained entries and
// links every entry it stores into the cache-wide recency list.
//
// Readers (get, containsKey) take mu.RLock; writers take mu.Lock.
// Recency splices additionally take the list lock, always after mu.
type segment[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu         sync.RWMutex
	table      []*entry[K, V]
	threshold  int     // resize when count would exceed this
	loadFactor float64 // threshold = len(table) * loadFactor
	maxBuckets int     // growth cap; beyond it the load factor is exceeded
	modCount   int     // structural modifications (inserts, removals, clears)
	maxed      bool    // growth cap reached and reported

	// count is written under mu and read lock-free by len().
	count atomic.Int64

	id    int
	shift uint // hash bits consumed by segment selection

	metrics Metrics
	log     logrus.FieldLogger

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

func newSegment[K comparable, V any](id int, shift uint, opt Options[K, V]) *segment[K, V] {
	s := &segment[K, V]{
		id:         id,
		shift:      shift,
		loadFactor: opt.LoadFactor,
		maxBuckets: opt.maxBuckets,
		metrics:    opt.Metrics,
		log:        opt.Logger.WithField("segment", id),
	}
	buckets := int(util.NextPow2(uint64(opt.InitialCapacity)))
	if buckets > s.maxBuckets {
		buckets = s.maxBuckets
	}
	s.setTable(make([]*entry[K, V], buckets))
	return s
}

// len returns the number of resident entries. It does not take the lock.
func (s *segment[K, V]) len() int { return int(s.count.Load()) }

// buckets returns the current table length.
func (s *segment[K, V]) buckets() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}

// containsKey reports whether a live entry exists for key.
// It never changes recency order.
func (s *segment[K, V]) containsKey(key K, hash uint64, now int64) bool {
	if s.count.Load() == 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.find(key, hash)
	return e != nil && !e.el.expired(now)
}

// get returns the element for key and promotes its entry to MRU.
// An expired entry is not promoted; it is returned as stale so the
// caller can remove it under the write lock.
func (s *segment[K, V]) get(key K, hash uint64, l *recencyList[K, V], now int64) (el *element[K, V], stale *entry[K, V]) {
	if s.count.Load() != 0 {
		s.mu.RLock()
		if e := s.find(key, hash); e != nil {
			if e.el.expired(now) {
				stale = e
			} else {
				e.recordAccess(l)
				el = e.el
			}
		}
		s.mu.RUnlock()
	}

	if el != nil {
		s.hits.Add(1)
		s.metrics.Hit()
	} else {
		s.misses.Add(1)
		s.metrics.Miss()
	}
	return el, stale
}

// put stores el. If the key is resident and live, the entry keeps its
// identity: the element is replaced and the entry is promoted to MRU
// (unless onlyIfAbsent, in which case nothing changes).
// A new key is linked as the head of its bucket and as MRU.
//
// Returns the previous element (nil if none) and whether el was stored.
func (s *segment[K, V]) put(el *element[K, V], hash uint64, l *recencyList[K, V], onlyIfAbsent bool, now int64) (old *element[K, V], stored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.find(el.key, hash); e != nil {
		live := !e.el.expired(now)
		if onlyIfAbsent && live {
			return e.el, false
		}
		old = e.replace(el, l)
		if !live {
			old = nil
		}
		return old, true
	}

	if int(s.count.Load())+1 > s.threshold {
		s.rehash()
	}

	idx := s.index(hash, len(s.table))
	e := &entry[K, V]{el: el, hash: hash, next: s.table[idx]}
	l.pushFront(e)
	s.table[idx] = e
	s.count.Add(1)
	s.modCount++
	return nil, true
}

// remove unlinks the entry for key from its bucket and the recency list.
// Returns nil if the key is not resident.
func (s *segment[K, V]) remove(key K, hash uint64, l *recencyList[K, V]) *element[K, V] {
	if s.count.Load() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(hash, len(s.table))
	var prev *entry[K, V]
	for e := s.table[idx]; e != nil; prev, e = e, e.next {
		if e.matches(key, hash) {
			s.unlinkLocked(idx, prev, e, l)
			return e.el
		}
	}
	return nil
}

// removeExpired unlinks target if it is still resident and its current
// element is expired at now. A concurrent Put may have refreshed the entry
// since it was observed stale; in that case nothing is removed.
func (s *segment[K, V]) removeExpired(target *entry[K, V], l *recencyList[K, V], now int64) *element[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target.el == nil || !target.el.expired(now) {
		return nil
	}
	return s.removeEntryLocked(target, l, false)
}

// evictIfLRU unlinks target only if it is still the cache-wide LRU entry.
// The check and the unlink happen atomically with respect to every other
// recency splice.
func (s *segment[K, V]) evictIfLRU(target *entry[K, V], l *recencyList[K, V]) *element[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEntryLocked(target, l, true)
}

func (s *segment[K, V]) removeEntryLocked(target *entry[K, V], l *recencyList[K, V], onlyIfLRU bool) *element[K, V] {
	idx := s.index(target.hash, len(s.table))
	var prev *entry[K, V]
	e := s.table[idx]
	for e != nil && e != target {
		prev, e = e, e.next
	}
	if e == nil {
		return nil
	}

	if onlyIfLRU {
		l.mu.Lock()
		ok := l.removeIfBackLocked(e)
		l.mu.Unlock()
		if !ok {
			return nil
		}
	} else {
		e.recordRemoval(l)
	}
	s.unlinkBucketLocked(idx, prev, e)
	return e.el
}

// clear unlinks every entry from the recency list and empties every bucket.
// The removed elements are returned so the caller can run eviction callbacks
// outside the lock.
func (s *segment[K, V]) clear(l *recencyList[K, V]) []*element[K, V] {
	if s.count.Load() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]*element[K, V], 0, s.count.Load())
	l.mu.Lock()
	for i, e := range s.table {
		for e != nil {
			next := e.next
			e.remove()
			e.next = nil
			removed = append(removed, e.el)
			e = next
		}
		s.table[i] = nil
	}
	l.mu.Unlock()

	s.count.Store(0)
	s.modCount++
	return removed
}

// -------------------- internals (mu held) --------------------

func (s *segment[K, V]) index(hash uint64, buckets int) int {
	return int((hash >> s.shift) & uint64(buckets-1))
}

func (s *segment[K, V]) find(key K, hash uint64) *entry[K, V] {
	e := s.table[s.index(hash, len(s.table))]
	for e != nil && !e.matches(key, hash) {
		e = e.next
	}
	return e
}

func (s *segment[K, V]) unlinkLocked(idx int, prev, e *entry[K, V], l *recencyList[K, V]) {
	e.recordRemoval(l)
	s.unlinkBucketLocked(idx, prev, e)
}

func (s *segment[K, V]) unlinkBucketLocked(idx int, prev, e *entry[K, V]) {
	if prev == nil {
		s.table[idx] = e.next
	} else {
		prev.next = e.next
	}
	e.next = nil
	s.count.Add(-1)
	s.modCount++
}

// rehash doubles the table and redistributes every chained entry.
// At maxBuckets it stops growing and the segment keeps operating with a
// higher effective load factor.
func (s *segment[K, V]) rehash() {
	oldTable := s.table
	oldCap := len(oldTable)
	if oldCap >= s.maxBuckets {
		if !s.maxed {
			s.maxed = true
			s.log.WithFields(logrus.Fields{
				"buckets": oldCap,
				"entries": s.count.Load(),
			}).Warn("segment table at maximum size; resizing stopped")
		}
		return
	}

	newTable := make([]*entry[K, V], oldCap<<1)
	for _, e := range oldTable {
		for e != nil {
			next := e.next
			idx := s.index(e.hash, len(newTable))
			e.next = newTable[idx]
			newTable[idx] = e
			e = next
		}
	}
	s.setTable(newTable)

	s.log.WithFields(logrus.Fields{
		"from": oldCap,
		"to":   len(newTable),
	}).Debug("segment table resized")
	s.metrics.Resize(s.id, len(newTable))
}

// setTable installs t and recomputes the threshold.
// Called only while holding mu or from the constructor.
func (s *segment[K, V]) setTable(t []*entry[K, V]) {
	s.table = t
	s.threshold = int(float64(len(t)) * s.loadFactor)
}
