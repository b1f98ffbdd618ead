package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrNotFound is returned when a key is absent from a tier
	ErrNotFound = errors.New("cache: key not found")

	// ErrSerialization is returned when a value cannot be encoded or cached
	// bytes cannot be decoded
	ErrSerialization = errors.New("cache: serialization failed")

	// ErrIO is returned for disk failures other than a missing file
	ErrIO = errors.New("cache: disk i/o failed")

	// ErrInvalidKey is returned for empty keys and malformed kinds
	ErrInvalidKey = errors.New("cache: invalid key")

	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = errors.New("cache: invalid config")
)

// Persistence selects whether a cache writes through to disk.
type Persistence string

const (
	// PersistDisk keeps a copy of every value on disk.
	PersistDisk Persistence = "disk"

	// PersistNone keeps values in memory only.
	PersistNone Persistence = "none"
)

// CacheStats holds cache performance metrics
type CacheStats struct {
	// Configuration
	MaxEntries int           // 0 means unbounded
	TTL        time.Duration // 0 means unbounded

	// Current state
	ItemCount int64

	// Performance metrics
	Hits        int64
	Misses      int64
	Evictions   int64 // LRU evictions caused by capacity pressure
	Expirations int64 // entries dropped because their TTL elapsed
	HitRate     float64
}

// Config holds configuration for a TieredCache.
type Config struct {
	// Persist selects the disk tier. Empty means PersistDisk.
	Persist Persistence

	// TTL bounds how long an entry stays in memory after insertion.
	// Zero means entries never expire.
	TTL time.Duration

	// MaxEntries bounds the number of entries in memory. Zero means unbounded.
	MaxEntries int

	// Root is the disk cache directory. Empty means DefaultRoot().
	Root string

	// Compress enables zstd compression of encoded values.
	Compress bool

	// Collapse makes concurrent misses on the same key share one Source call.
	// The shared call runs with the context of the caller that started it;
	// callers whose own context is still live retry if that context ends.
	Collapse bool
}

// DefaultConfig returns the default cache configuration: disk persistence,
// no TTL and no entry limit.
func DefaultConfig() Config {
	return Config{
		Persist: PersistDisk,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	switch c.Persist {
	case "", PersistDisk, PersistNone:
	default:
		return fmt.Errorf("%w: persist must be %q or %q, got %q", ErrInvalidConfig, PersistDisk, PersistNone, c.Persist)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: ttl must not be negative, got %s", ErrInvalidConfig, c.TTL)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("%w: max entries must not be negative, got %d", ErrInvalidConfig, c.MaxEntries)
	}
	return nil
}

func (c Config) diskEnabled() bool {
	return c.Persist == "" || c.Persist == PersistDisk
}

// Source produces the value for a raw key on a full cache miss. It must be
// deterministic enough that caching its result is acceptable.
type Source[V any] interface {
	Query(ctx context.Context, key string) (V, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[V any] func(ctx context.Context, key string) (V, error)

// Query calls f.
func (f SourceFunc[V]) Query(ctx context.Context, key string) (V, error) {
	return f(ctx, key)
}

const keySeparator = ":"

// NamespacedKey joins a kind and a raw key.
func NamespacedKey(kind, key string) string {
	return kind + keySeparator + key
}

// SplitKey splits a namespaced key at its first separator.
func SplitKey(nsKey string) (kind, key string, err error) {
	kind, key, ok := strings.Cut(nsKey, keySeparator)
	if !ok || kind == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q is not a namespaced key", ErrInvalidKey, nsKey)
	}
	return kind, key, nil
}

func validateKind(kind string) error {
	if kind == "" || strings.ContainsAny(kind, keySeparator+`/\`) || kind == "." || kind == ".." {
		return fmt.Errorf("%w: kind %q", ErrInvalidKey, kind)
	}
	return nil
}
