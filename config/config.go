// Package config loads cache settings from TOML.
//
// A minimal file:
//
//	max_capacity = 50000
//	segments     = 32
//	default_ttl  = "5m"
//
// Omitted keys keep the values from Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/IvanBrykalov/segcache/cache"
)

// Config mirrors the tunables of cache.Options that can be expressed in a file.
type Config struct {
	MaxCapacity     int      `toml:"max_capacity"`
	Segments        int      `toml:"segments"`
	InitialCapacity int      `toml:"initial_capacity"`
	LoadFactor      float64  `toml:"load_factor"`
	DefaultTTL      Duration `toml:"default_ttl"`
}

// Duration is a time.Duration decoded from a string such as "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		MaxCapacity:     cache.DefaultMaxCapacity,
		Segments:        cache.DefaultSegments,
		InitialCapacity: cache.DefaultInitialCapacity,
		LoadFactor:      cache.DefaultLoadFactor,
	}
}

// Load reads and validates the TOML file at path.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(string(content))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the same way cache.New does.
func (c Config) Validate() error {
	if c.DefaultTTL.Duration < 0 {
		return errors.New("config: default_ttl must not be negative")
	}
	return Options[string, struct{}](c).Validate()
}

// Options converts c into cache options. Callbacks, metrics and logging
// are left for the caller to fill in.
func Options[K comparable, V any](c Config) cache.Options[K, V] {
	return cache.Options[K, V]{
		MaxCapacity:     c.MaxCapacity,
		Segments:        c.Segments,
		InitialCapacity: c.InitialCapacity,
		LoadFactor:      c.LoadFactor,
		DefaultTTL:      c.DefaultTTL.Duration,
	}
}
