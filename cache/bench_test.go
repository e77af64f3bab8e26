package cache

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
)

const (
	benchCapacity = 100_000
	benchHotMask  = (1 << 16) - 1 // hot keyspace, power of two for &-masking
)

// runMix drives a parallel read/write mix against a cache preloaded to half
// capacity. key maps a worker-local counter onto the hot keyspace.
func runMix[K comparable](b *testing.B, readsPct int, key func(i int) K) {
	c := New[K, int](Options[K, int]{MaxCapacity: benchCapacity})
	b.Cleanup(func() { _ = c.Close() })

	for i := 0; i < benchCapacity/2; i++ {
		_, _, _ = c.Put(key(i), i)
	}

	var seed int64
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		for i := 0; pb.Next(); i++ {
			k := key(i & benchHotMask)
			if r.Intn(100) < readsPct {
				_, _, _ = c.Get(k)
			} else {
				_, _, _ = c.Put(k, i)
			}
		}
	})
}

func stringKey(i int) string { return "k:" + strconv.Itoa(i) }
func intKey(i int) int { return i }

// String keys include strconv costs; int keys expose the segment hot path.
func BenchmarkCache_90r10w(b *testing.B) { runMix(b, 90, stringKey) }
func BenchmarkCache_50r50w(b *testing.B) { runMix(b, 50, stringKey) }
func BenchmarkCache_IntKeys_90r10w(b *testing.B) { runMix(b, 90, intKey) }
func BenchmarkCache_IntKeys_50r50w(b *testing.B) { runMix(b, 50, intKey) }

// Every insert past capacity pays for one global LRU eviction.
func BenchmarkCache_EvictionChurn(b *testing.B) {
	c := New[int, int](Options[int, int]{MaxCapacity: 1_024})
	b.Cleanup(func() { _ = c.Close() })

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Put(i, i)
	}
}

// Concurrent eviction: all workers contend on the recency list tail.
func BenchmarkCache_EvictionChurnParallel(b *testing.B) {
	c := New[int64, int64](Options[int64, int64]{MaxCapacity: 4_096})
	b.Cleanup(func() { _ = c.Close() })

	var next int64
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := atomic.AddInt64(&next, 1)
			_, _, _ = c.Put(k, k)
		}
	})
}

func BenchmarkCache_GetOrLoadHit(b *testing.B) {
	c := New[int, int](Options[int, int]{
		MaxCapacity: 1_024,
		Loader:      func(_ context.Context, k int) (int, error) { return k, nil },
	})
	b.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	for i := 0; i < 1_024; i++ {
		_, _ = c.GetOrLoad(ctx, i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetOrLoad(ctx, i&1023)
	}
}
