// Package util contains internal helpers (hashing, power-of-two math, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// seed keys maphash for the generic fallback path. It is process-wide so that
// equal keys hash equally across every cache instance in the process.
var seed = maphash.MakeSeed()

// Hash returns a raw 64-bit hash of k.
// Strings, fixed-size byte arrays and integer keys go through xxhash; any other
// comparable type (structs, pointers, interfaces) falls back to maphash.Comparable.
// The result is not spread; callers mix it with Spread before masking.
func Hash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])

	// Integer-like keys: hash the little-endian bytes of the value.
	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))
	default:
		return maphash.Comparable(seed, k)
	}
}

func hashUint64(u uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return xxhash.Sum64(b[:])
}

// Spread mixes a raw hash so that low-order bits depend on the whole word.
// Segment and bucket selection mask the low bits, so raw hashes whose low bits
// correlate (sequential integers, user hashers) would otherwise cluster.
//
// The mix is the classic four-step shift/XOR/add sequence:
//
//	h += ^(h << 9)
//	h ^=   h >> 14
//	h +=   h << 4
//	h ^=   h >> 10
func Spread(h uint64) uint64 {
	h += ^(h << 9)
	h ^= h >> 14
	h += h << 4
	h ^= h >> 10
	return h
}
