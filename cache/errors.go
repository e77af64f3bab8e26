package cache

import "errors"

var (
	// ErrInvalidKey is returned by every keyed operation when the key is nil
	// (a nil interface, pointer, channel or unsafe pointer). It is reported
	// before any hashing, locking or mutation takes place.
	ErrInvalidKey = errors.New("cache: element keys should not be nil")

	// ErrClosed is returned by operations on a cache after Close.
	ErrClosed = errors.New("cache: closed")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
)
