package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxCapacity is the entry limit used by configuration loaders when
	// none is given. New itself requires an explicit MaxCapacity.
	DefaultMaxCapacity = 10_000
	// DefaultSegments is the number of independently locked segments.
	DefaultSegments = 16
	// DefaultInitialCapacity is the initial bucket count of every segment.
	DefaultInitialCapacity = 16
	// DefaultLoadFactor triggers a segment resize when count exceeds
	// buckets*LoadFactor.
	DefaultLoadFactor = 0.75

	maxSegments  = 1 << 16
	maxTableSize = 1 << 30
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity: the global LRU entry was dropped to respect MaxCapacity.
	EvictCapacity EvictReason = iota
	// EvictTTL: expired by TTL (lazy eviction on access).
	EvictTTL
	// EvictClear: removed by Clear.
	EvictClear
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictTTL:
		return "ttl"
	case EvictClear:
		return "clear"
	default:
		return fmt.Sprintf("EvictReason(%d)", int(r))
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
	// Resize is called under the segment lock after a segment doubles its table.
	Resize(segment, buckets int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe except
// MaxCapacity; defaults are applied in New():
//   - Segments <= 0        => DefaultSegments (rounded up to power of two)
//   - InitialCapacity <= 0 => DefaultInitialCapacity (rounded up to power of two)
//   - LoadFactor == 0      => DefaultLoadFactor
//   - nil Metrics          => NoopMetrics
//   - nil Hasher           => xxhash / maphash based hasher
//   - nil Logger           => discard
type Options[K comparable, V any] struct {
	// MaxCapacity is the global entry limit across all segments.
	MaxCapacity int

	// Segments is the number of independently locked shards of the hash table.
	Segments int

	// InitialCapacity is the initial bucket count per segment.
	InitialCapacity int

	// LoadFactor bounds count/buckets per segment before the table doubles.
	LoadFactor float64

	// DefaultTTL applies to Put/Add when no per-key TTL is given (0 = no TTL).
	DefaultTTL time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called after an entry is evicted, outside all cache locks.
	OnEvict func(k K, v V, reason EvictReason)

	Metrics Metrics

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock

	// Hasher computes the raw key hash; it is spread before use.
	Hasher func(k K) uint64

	Logger logrus.FieldLogger

	// maxBuckets caps per-segment growth; zero means maxTableSize.
	maxBuckets int
}

// Validate reports the first invalid setting. New panics on the same conditions.
func (o Options[K, V]) Validate() error {
	if o.MaxCapacity <= 0 {
		return fmt.Errorf("cache: MaxCapacity must be > 0, got %d", o.MaxCapacity)
	}
	if o.Segments > maxSegments {
		return fmt.Errorf("cache: Segments must be <= %d, got %d", maxSegments, o.Segments)
	}
	if o.InitialCapacity > maxTableSize {
		return fmt.Errorf("cache: InitialCapacity must be <= %d, got %d", maxTableSize, o.InitialCapacity)
	}
	if o.LoadFactor < 0 || o.LoadFactor > 1 {
		return fmt.Errorf("cache: LoadFactor must be in (0, 1], got %v", o.LoadFactor)
	}
	return nil
}

func (o Options[K, V]) withDefaults() Options[K, V] {
	if o.Segments <= 0 {
		o.Segments = DefaultSegments
	}
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = DefaultInitialCapacity
	}
	if o.LoadFactor == 0 {
		o.LoadFactor = DefaultLoadFactor
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	if o.maxBuckets <= 0 {
		o.maxBuckets = maxTableSize
	}
	return o
}
