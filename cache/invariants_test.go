package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// assertConsistent walks the recency list and every bucket chain of a
// quiescent cache and checks that both structures describe the same set of
// entries, that each entry lives in the segment its hash selects, and that
// segment counts match what is reachable.
func assertConsistent[K comparable, V any](t *testing.T, c *lruCache[K, V]) {
	t.Helper()

	inList := make(map[*entry[K, V]]bool)
	h := &c.list.header
	for e := h.after; e != h; e = e.after {
		require.Same(t, e, e.after.before, "recency back-link broken")
		require.False(t, inList[e], "entry visited twice in recency list")
		require.NotNil(t, e.el)
		inList[e] = true
	}

	total := 0
	for i, s := range c.segments {
		n := 0
		for idx, e := range s.table {
			for ; e != nil; e = e.next {
				require.True(t, inList[e], "bucket entry missing from recency list")
				require.Equal(t, uint64(i), e.hash&c.segmentMask, "entry in wrong segment")
				require.Equal(t, idx, s.index(e.hash, len(s.table)), "entry in wrong bucket")
				n++
			}
		}
		require.Equal(t, s.len(), n, "segment %d count mismatch", i)
		total += n
	}
	require.Equal(t, len(inList), total, "recency list holds entries no bucket references")
	require.Equal(t, total, c.Len())
}
