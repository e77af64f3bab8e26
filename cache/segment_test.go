package cache

import (
	"strconv"
	"testing"

	"github.com/IvanBrykalov/segcache/internal/util"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sameBucket forces every test key into one bucket chain.
const sameBucket uint64 = 10

func newTestSegment(t *testing.T, buckets int, loadFactor float64) (*segment[string, int], *recencyList[string, int]) {
	t.Helper()
	opt := Options[string, int]{
		MaxCapacity:     1 << 20,
		InitialCapacity: buckets,
		LoadFactor:      loadFactor,
	}.withDefaults()
	return newSegment[string, int](0, 0, opt), newRecencyList[string, int]()
}

func putKey(s *segment[string, int], l *recencyList[string, int], k string, v int, hash uint64) (*element[string, int], bool) {
	return s.put(newElement(k, v, 0), hash, l, false, 0)
}

func bucketKeys(s *segment[string, int], hash uint64) []string {
	var out []string
	for e := s.table[s.index(hash, len(s.table))]; e != nil; e = e.next {
		out = append(out, e.el.key)
	}
	return out
}

func TestSegment_InitialCapacity(t *testing.T) {
	t.Parallel()

	s, _ := newTestSegment(t, 2, 2)
	assert.Equal(t, 2, s.buckets())
	assert.Equal(t, 4, s.threshold)

	s, _ = newTestSegment(t, 5, 0.75)
	assert.Equal(t, 8, s.buckets(), "initial capacity is rounded up to a power of two")
}

func TestSegment_ClearEmpty(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	assert.Nil(t, s.clear(l))
	assert.Zero(t, s.len())
	assertListOrder(t, l)
}

// Every chained entry must leave the recency list, not only bucket heads.
func TestSegment_ClearRemovesWholeChains(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "a", 1, sameBucket)
	putKey(s, l, "b", 2, sameBucket)
	putKey(s, l, "c", 3, sameBucket+1)

	removed := s.clear(l)
	assert.Len(t, removed, 3)
	assert.Zero(t, s.len())
	assertListOrder(t, l)
	for _, head := range s.table {
		assert.Nil(t, head)
	}
}

func TestSegment_PutNewEntryIsBucketHeadAndMRU(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	old, stored := putKey(s, l, "key", 1, sameBucket)
	assert.Nil(t, old)
	assert.True(t, stored)
	putKey(s, l, "newKey", 2, sameBucket)

	assert.Equal(t, []string{"newKey", "key"}, bucketKeys(s, sameBucket))
	assertListOrder(t, l, "newKey", "key")
	assert.Equal(t, 2, s.len())
}

func TestSegment_GetPromotesEntry(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "key", 1, sameBucket)
	putKey(s, l, "newKey", 2, sameBucket)

	el, stale := s.get("key", sameBucket, l, 0)
	require.NotNil(t, el)
	assert.Nil(t, stale)
	assert.Equal(t, 1, el.value)
	assertListOrder(t, l, "key", "newKey")

	el, _ = s.get("missing", sameBucket, l, 0)
	assert.Nil(t, el)
	assertListOrder(t, l, "key", "newKey")
	assert.Equal(t, int64(1), s.hits.Load())
	assert.Equal(t, int64(1), s.misses.Load())
}

func TestSegment_PutReplacesAndPromotes(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "key", 1, sameBucket)
	putKey(s, l, "other", 2, sameBucket)

	old, stored := putKey(s, l, "key", 10, sameBucket)
	require.NotNil(t, old)
	assert.True(t, stored)
	assert.Equal(t, 1, old.value)
	assert.Equal(t, 2, s.len(), "replacement must not create an entry")
	assertListOrder(t, l, "key", "other")

	el, _ := s.get("key", sameBucket, l, 0)
	assert.Equal(t, 10, el.value)
}

func TestSegment_PutOnlyIfAbsent(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "key", 1, sameBucket)

	old, stored := s.put(newElement("key", 2, 0), sameBucket, l, true, 0)
	assert.False(t, stored)
	assert.Equal(t, 1, old.value)

	// An expired resident entry does not block insertion.
	s.put(newElement("ttl", 1, 100), sameBucket, l, false, 0)
	old, stored = s.put(newElement("ttl", 2, 0), sameBucket, l, true, 200)
	assert.True(t, stored)
	assert.Nil(t, old)
}

func TestSegment_ContainsKeyDoesNotPromote(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "a", 1, sameBucket)
	putKey(s, l, "b", 2, sameBucket)

	assert.True(t, s.containsKey("a", sameBucket, 0))
	assert.False(t, s.containsKey("z", sameBucket, 0))
	assertListOrder(t, l, "b", "a")
}

func TestSegment_RemoveFromEmpty(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	assert.Nil(t, s.remove("key", sameBucket, l))
	assert.Zero(t, s.len())
	assertListOrder(t, l)
}

func TestSegment_RemoveSingleEntry(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "key", 1, sameBucket)

	el := s.remove("key", sameBucket, l)
	require.NotNil(t, el)
	assert.Equal(t, 1, el.value)
	assert.Zero(t, s.len())
	assertListOrder(t, l)
}

func TestSegment_RemoveMiddleOfBucket(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "key1", 1, sameBucket)
	putKey(s, l, "key2", 2, sameBucket)
	putKey(s, l, "key3", 3, sameBucket)

	el := s.remove("key2", sameBucket, l)
	require.NotNil(t, el)
	assert.Equal(t, 2, el.value)
	assert.Equal(t, []string{"key3", "key1"}, bucketKeys(s, sameBucket))
	assertListOrder(t, l, "key3", "key1")
	assert.Equal(t, 2, s.len())
}

// Rehash must keep every chained entry reachable.
func TestSegment_RehashPreservesEntries(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 0.75)
	const n = 100
	for i := 0; i < n; i++ {
		putKey(s, l, strconv.Itoa(i), i, util.Spread(uint64(i)))
	}

	assert.Equal(t, n, s.len())
	assert.Equal(t, 256, s.buckets())
	for i := 0; i < n; i++ {
		el, _ := s.get(strconv.Itoa(i), util.Spread(uint64(i)), l, 0)
		require.NotNil(t, el, "key %d lost in rehash", i)
		assert.Equal(t, i, el.value)
	}
	assert.Len(t, l.keys(), n)
}

func TestSegment_RehashStopsAtMaxBuckets(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 0.75)
	s.maxBuckets = 4

	const n = 50
	for i := 0; i < n; i++ {
		putKey(s, l, strconv.Itoa(i), i, uint64(i))
	}
	assert.Equal(t, 4, s.buckets())
	assert.True(t, s.maxed)
	assert.Equal(t, n, s.len())
	for i := 0; i < n; i++ {
		assert.True(t, s.containsKey(strconv.Itoa(i), uint64(i), 0))
	}
}

func TestSegment_LogsResizeAndWarnsOnceAtCap(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opt := Options[string, int]{
		MaxCapacity:     1 << 20,
		InitialCapacity: 2,
		Logger:          logger,
	}.withDefaults()
	opt.maxBuckets = 4
	s, l := newSegment[string, int](3, 0, opt), newRecencyList[string, int]()

	for i := 0; i < 20; i++ {
		putKey(s, l, strconv.Itoa(i), i, uint64(i))
	}

	var debug, warn int
	for _, e := range hook.AllEntries() {
		switch e.Level {
		case logrus.DebugLevel:
			debug++
			assert.Equal(t, 3, e.Data["segment"])
		case logrus.WarnLevel:
			warn++
			assert.Equal(t, 4, e.Data["buckets"])
		}
	}
	assert.Equal(t, 1, debug, "one doubling from 2 to 4 buckets")
	assert.Equal(t, 1, warn, "cap is reported once")
}

func TestSegment_EvictIfLRU(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	putKey(s, l, "old", 1, sameBucket)
	putKey(s, l, "new", 2, sameBucket)

	newest := s.find("new", sameBucket)
	assert.Nil(t, s.evictIfLRU(newest, l), "MRU entry must not be evicted")

	oldest := l.back()
	el := s.evictIfLRU(oldest, l)
	require.NotNil(t, el)
	assert.Equal(t, "old", el.key)
	assert.Equal(t, []string{"new"}, bucketKeys(s, sameBucket))
	assertListOrder(t, l, "new")

	assert.Nil(t, s.evictIfLRU(oldest, l), "already evicted")
}

func TestSegment_RemoveExpiredSkipsRefreshedEntry(t *testing.T) {
	t.Parallel()

	s, l := newTestSegment(t, 2, 2)
	s.put(newElement("k", 1, 100), sameBucket, l, false, 0)

	_, stale := s.get("k", sameBucket, l, 150)
	require.NotNil(t, stale)

	// A concurrent Put refreshes the entry before the stale removal runs.
	s.put(newElement("k", 2, 0), sameBucket, l, false, 150)
	assert.Nil(t, s.removeExpired(stale, l, 150))
	assert.Equal(t, 1, s.len())

	s.put(newElement("k", 3, 120), sameBucket, l, false, 150)
	el := s.removeExpired(stale, l, 150)
	require.NotNil(t, el)
	assert.Equal(t, 3, el.value)
	assert.Zero(t, s.len())
}
