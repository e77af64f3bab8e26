package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/segcache/internal/singleflight"
	"github.com/IvanBrykalov/segcache/internal/util"
	"github.com/sirupsen/logrus"
)

// lruCache is a segmented hash table with one recency list shared by all
// segments. Keys are routed to a segment by the low bits of their spread
// hash; buckets inside a segment use the bits above those.
type lruCache[K comparable, V any] struct {
	segments    []*segment[K, V]
	segmentMask uint64
	list        *recencyList[K, V]
	maxCapacity int

	// evictMu serializes capacity enforcement so that two inserters racing
	// past the bound evict one entry each, not two entries for one overflow.
	evictMu sync.Mutex

	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]
	log logrus.FieldLogger

	evictions util.PaddedAtomicUint64

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options.
// It panics if opt.Validate reports an error.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if err := opt.Validate(); err != nil {
		panic(err.Error())
	}
	opt = opt.withDefaults()

	n := int(util.NextPow2(uint64(opt.Segments)))
	shift := util.Log2(uint64(n))

	c := &lruCache[K, V]{
		segments:    make([]*segment[K, V], n),
		segmentMask: uint64(n - 1),
		list:        newRecencyList[K, V](),
		maxCapacity: opt.MaxCapacity,
		hash:        opt.Hasher,
		opt:         opt,
		log:         opt.Logger,
	}
	if c.hash == nil {
		c.hash = util.Hash[K]
	}
	for i := range c.segments {
		c.segments[i] = newSegment[K, V](i, shift, opt)
	}
	c.log.WithFields(logrus.Fields{
		"max_capacity": opt.MaxCapacity,
		"segments":     n,
		"buckets":      c.segments[0].buckets(),
		"load_factor":  opt.LoadFactor,
	}).Debug("cache created")
	return c
}

// ---- Cache[K,V] implementation ----

// Get returns the value for k and a presence flag.
// An expired entry is removed lazily and reported as a miss.
func (c *lruCache[K, V]) Get(k K) (V, bool, error) {
	var zero V
	if err := c.check(k); err != nil {
		return zero, false, err
	}
	h := c.hashOf(k)
	s := c.segmentFor(h)

	now := c.now()
	el, stale := s.get(k, h, c.list, now)
	if stale != nil {
		if expired := s.removeExpired(stale, c.list, now); expired != nil {
			c.evicted(expired, EvictTTL)
			c.opt.Metrics.Size(c.Len())
		}
		return zero, false, nil
	}
	if el == nil {
		return zero, false, nil
	}
	return el.value, true, nil
}

// Put inserts or replaces k→v using DefaultTTL if set.
func (c *lruCache[K, V]) Put(k K, v V) (V, bool, error) {
	return c.put(k, v, c.defaultDeadline())
}

// PutWithTTL inserts or replaces k→v with a per-key TTL.
func (c *lruCache[K, V]) PutWithTTL(k K, v V, ttl time.Duration) (V, bool, error) {
	return c.put(k, v, c.deadline(ttl))
}

// Add inserts k→v only if absent, using DefaultTTL if set.
func (c *lruCache[K, V]) Add(k K, v V) (bool, error) {
	if err := c.check(k); err != nil {
		return false, err
	}
	h := c.hashOf(k)
	_, stored := c.segmentFor(h).put(newElement(k, v, c.defaultDeadline()), h, c.list, true, c.now())
	if stored {
		c.enforceCapacity()
	}
	return stored, nil
}

// Remove deletes k if present and returns its value.
// An entry that had already expired is removed but reported as absent.
func (c *lruCache[K, V]) Remove(k K) (V, bool, error) {
	var zero V
	if err := c.check(k); err != nil {
		return zero, false, err
	}
	h := c.hashOf(k)
	el := c.segmentFor(h).remove(k, h, c.list)
	if el == nil {
		return zero, false, nil
	}
	c.opt.Metrics.Size(c.Len())
	if el.expired(c.now()) {
		return zero, false, nil
	}
	return el.value, true, nil
}

// ContainsKey reports whether k is present; recency order is unchanged.
func (c *lruCache[K, V]) ContainsKey(k K) (bool, error) {
	if err := c.check(k); err != nil {
		return false, err
	}
	h := c.hashOf(k)
	return c.segmentFor(h).containsKey(k, h, c.now()), nil
}

// Len returns the total number of resident entries across all segments.
func (c *lruCache[K, V]) Len() int {
	total := 0
	for _, s := range c.segments {
		total += s.len()
	}
	return total
}

// IsEmpty stops at the first non-empty segment.
func (c *lruCache[K, V]) IsEmpty() bool {
	for _, s := range c.segments {
		if s.len() != 0 {
			return false
		}
	}
	return true
}

// Clear empties every segment. Entries inserted concurrently with Clear may
// survive it.
func (c *lruCache[K, V]) Clear() {
	removed := 0
	for _, s := range c.segments {
		els := s.clear(c.list)
		for _, el := range els {
			c.evicted(el, EvictClear)
		}
		removed += len(els)
	}
	c.log.WithField("removed", removed).Debug("cache cleared")
}

// Keys returns resident keys from most to least recently used.
func (c *lruCache[K, V]) Keys() []K { return c.list.keys() }

// Stats aggregates per-segment counters.
func (c *lruCache[K, V]) Stats() Stats {
	st := Stats{Evictions: c.evictions.Load()}
	for _, s := range c.segments {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Entries += s.len()
		st.Buckets += s.buckets()
	}
	return st
}

// Close marks the cache as closed. Resident entries are kept until the
// cache is garbage collected; OnEvict is not called for them.
func (c *lruCache[K, V]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.log.WithField("entries", c.Len()).Debug("cache closed")
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *lruCache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	v, ok, err := c.Get(k)
	if err != nil || ok {
		return v, err
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	v, _, err = c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok, err := c.Get(k); err != nil || ok {
			return v, err
		}
		v, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		if _, _, err := c.Put(k, v); err != nil {
			return v, err
		}
		return v, nil
	})
	return v, err
}

// ---- helpers ----

func (c *lruCache[K, V]) put(k K, v V, deadline int64) (V, bool, error) {
	var zero V
	if err := c.check(k); err != nil {
		return zero, false, err
	}
	h := c.hashOf(k)
	old, _ := c.segmentFor(h).put(newElement(k, v, deadline), h, c.list, false, c.now())
	c.enforceCapacity()
	if old == nil {
		return zero, false, nil
	}
	return old.value, true, nil
}

// enforceCapacity evicts the global LRU entry until Len() <= MaxCapacity.
// The victim is read under the list lock, then removed under its segment
// lock only if it is still the LRU; otherwise the loop re-reads the tail.
func (c *lruCache[K, V]) enforceCapacity() {
	if c.Len() > c.maxCapacity {
		c.evictMu.Lock()
		victims := c.evictOverflowLocked()
		c.evictMu.Unlock()

		for _, el := range victims {
			c.evicted(el, EvictCapacity)
		}
	}
	c.opt.Metrics.Size(c.Len())
}

func (c *lruCache[K, V]) evictOverflowLocked() []*element[K, V] {
	var victims []*element[K, V]
	for c.Len() > c.maxCapacity {
		victim := c.list.back()
		if victim == nil {
			break
		}
		if el := c.segmentFor(victim.hash).evictIfLRU(victim, c.list); el != nil {
			victims = append(victims, el)
		}
	}
	return victims
}

// evicted records an eviction and runs the OnEvict callback.
// Called with no cache lock held.
func (c *lruCache[K, V]) evicted(el *element[K, V], reason EvictReason) {
	c.evictions.Add(1)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(el.key, el.value, reason)
	}
}

// check validates a key before any hashing or locking.
func (c *lruCache[K, V]) check(k K) error {
	if isNilKey(k) {
		return ErrInvalidKey
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *lruCache[K, V]) hashOf(k K) uint64 { return util.Spread(c.hash(k)) }

// segmentFor picks a segment by masking the spread hash.
// len(c.segments) is guaranteed to be a power of two.
func (c *lruCache[K, V]) segmentFor(h uint64) *segment[K, V] {
	return c.segments[h&c.segmentMask]
}

func (c *lruCache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// defaultDeadline returns an absolute deadline based on DefaultTTL.
func (c *lruCache[K, V]) defaultDeadline() int64 {
	return c.deadline(c.opt.DefaultTTL)
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *lruCache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.now() + int64(ttl)
}
