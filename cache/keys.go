package cache

import "reflect"

// isNilKey reports whether k is a nil reference. Only interface, pointer,
// channel and unsafe pointer keys can be nil among comparable types.
func isNilKey[K comparable](k K) bool {
	switch any(k).(type) {
	case nil:
		return true
	case string, int, int64, int32, uint, uint64, uint32:
		return false
	}
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
