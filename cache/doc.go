// Package cache provides a generic, segmented, concurrent LRU cache with a
// global entry limit, per-entry TTL, optional singleflight loading and
// lightweight metrics hooks.
//
// Design
//
//   - Segments: the hash table is split into a power-of-two number of
//     segments, each protected by its own RWMutex. A key's segment is chosen
//     by the low bits of its spread hash; bucket selection inside the segment
//     uses the bits above those, so the two never compete for the same bits.
//
//   - Buckets: each segment keeps a power-of-two array of separately chained
//     entries. A segment doubles its table when an insert would push the
//     entry count past buckets*LoadFactor. Growth stops at 1<<30 buckets; the
//     segment keeps working at a higher load factor and logs a warning once.
//
//   - Recency: every entry is also threaded into one circular, doubly linked
//     list shared by all segments and anchored by a sentinel header.
//     header.after is the most recently used entry, header.before the least.
//     The list has its own mutex. Locks are always taken segment first, then
//     list.
//
//   - Eviction: after an insert, while Len() > MaxCapacity, the entry at the
//     list tail is removed from its segment. The victim is confirmed to still
//     be the tail under both locks; if a concurrent access promoted it, the
//     loop re-reads the tail. A single resident entry is never evicted.
//
//   - Hashing: keys are hashed with xxhash (strings, integers, fixed byte
//     arrays) or hash/maphash (any other comparable type) and then passed
//     through a shift/XOR spread function so that low bits are well mixed.
//     Options.Hasher replaces the raw hash.
//
//   - TTL: entries may carry an absolute deadline. Get and ContainsKey treat
//     expired entries as absent; Get removes them lazily (EvictTTL).
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics and logging: Options.Metrics receives Hit/Miss/Evict/Size/Resize
//     signals (NoopMetrics by default). Options.Logger is a logrus.FieldLogger;
//     nil discards output.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{MaxCapacity: 10_000})
//	if _, _, err := c.Put("a", []byte("1")); err != nil {
//	    return err
//	}
//	if v, ok, _ := c.Get("a"); ok {
//	    _ = v
//	}
//	_, _, _ = c.Remove("a")
//
// With TTL
//
//	c := cache.New[string, string](cache.Options[string, string]{MaxCapacity: 1024})
//	_, _, _ = c.PutWithTTL("tmp", "v", 200*time.Millisecond)
//	time.Sleep(300 * time.Millisecond)
//	_, ok, _ := c.Get("tmp") // ok == false (expired)
//
// With GetOrLoad (singleflight)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    MaxCapacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Exporting metrics
//
//	m := prom.New(nil, "segcache", "demo", nil) // implements Metrics
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    MaxCapacity: 10_000,
//	    Metrics:     m,
//	})
//
// Nil keys
//
// A nil interface, pointer or channel key is rejected with ErrInvalidKey
// before any hashing or locking takes place.
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Get, Put and Remove are
// O(1) expected time: one bucket walk and a constant number of pointer
// splices. Each eviction is O(1) in the absence of contention on the tail.
package cache
