package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// TieredCache reads values through a memory tier, an optional disk tier and
// finally a Source. Values produced by the Source are written through to
// every enabled tier.
//
// Concurrent misses on the same key each call the Source unless
// Config.Collapse is set.
type TieredCache[V any] struct {
	kind   string
	source Source[V]
	config Config

	memory *MemoryCache
	disk   *DiskCache // nil without disk persistence
	codec  *Codec

	logger  *log.Logger
	metrics *Metrics
	flight  singleflight.Group
}

type options struct {
	disk    *DiskCache
	fs      afero.Fs
	logger  *log.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option customizes a TieredCache.
type Option func(*options)

// WithDisk shares an existing disk tier, e.g. between several kinds.
func WithDisk(dc *DiskCache) Option {
	return func(o *options) { o.disk = dc }
}

// WithFs sets the filesystem of the disk tier created by New.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records lookups, Source calls and errors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now for TTL bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache for kind backed by src.
func New[V any](kind string, src Source[V], cfg Config, opts ...Option) (*TieredCache[V], error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default().WithPrefix("cache")
	}

	codec, err := NewCodec(cfg.Compress)
	if err != nil {
		return nil, err
	}

	memory := NewMemoryCache(cfg.TTL, cfg.MaxEntries)
	if o.now != nil {
		memory.now = o.now
	}

	c := &TieredCache[V]{
		kind:    kind,
		source:  src,
		config:  cfg,
		memory:  memory,
		codec:   codec,
		logger:  o.logger,
		metrics: o.metrics,
	}

	if cfg.diskEnabled() {
		c.disk = o.disk
		if c.disk == nil {
			diskOpts := []DiskOption{WithDiskLogger(o.logger)}
			if o.fs != nil {
				diskOpts = append(diskOpts, WithDiskFs(o.fs))
			}
			c.disk = NewDiskCache(cfg.Root, diskOpts...)
		}
	}

	return c, nil
}

// Kind returns the namespace of the cache.
func (c *TieredCache[V]) Kind() string {
	return c.kind
}

// Read returns the value for key, consulting memory, then disk, then the
// Source. Source errors are returned unchanged; corrupt cached bytes fail
// with ErrSerialization and disk failures with ErrIO.
func (c *TieredCache[V]) Read(ctx context.Context, key string) (V, error) {
	var zero V
	if key == "" {
		return zero, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	nsKey := NamespacedKey(c.kind, key)

	if data, ok := c.memory.Get(nsKey); ok {
		c.logger.Debug("Memory cache hit", "key", nsKey)
		c.metrics.lookup(c.kind, tierMemory, true)
		return c.decode(nsKey, data)
	}
	c.logger.Debug("Memory cache miss", "key", nsKey)
	c.metrics.lookup(c.kind, tierMemory, false)

	if c.disk != nil {
		data, err := c.disk.Read(nsKey)
		switch {
		case err == nil:
			c.metrics.lookup(c.kind, tierDisk, true)
			// Promoted before decoding: corrupt bytes stay cached in memory
			// until TTL or LRU drops them.
			c.memory.Put(nsKey, data)
			return c.decode(nsKey, data)
		case errors.Is(err, ErrNotFound):
			c.metrics.lookup(c.kind, tierDisk, false)
		default:
			c.metrics.failure(c.kind, "io")
			return zero, err
		}
	}

	if !c.config.Collapse {
		return c.load(ctx, key, nsKey)
	}

	v, err, shared := c.flight.Do(nsKey, func() (any, error) {
		return c.load(ctx, key, nsKey)
	})
	if err != nil {
		// The shared load ran with another caller's context. Its
		// cancellation is not ours to report.
		if shared && ctx.Err() == nil && isContextErr(err) {
			c.logger.Debug("Shared source call canceled, retrying", "key", nsKey)
			return c.load(ctx, key, nsKey)
		}
		return zero, err
	}
	if shared {
		c.logger.Debug("Shared source result", "key", nsKey)
	}
	out, _ := v.(V)
	return out, nil
}

// load queries the Source and writes the encoded result through both tiers.
// The Source's value is returned as is; only later hits go through the codec.
func (c *TieredCache[V]) load(ctx context.Context, key, nsKey string) (V, error) {
	var zero V
	if c.source == nil {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, nsKey)
	}

	value, err := c.source.Query(ctx, key)
	c.metrics.sourceCall(c.kind, err)
	if err != nil {
		return zero, err
	}

	data, err := c.codec.Encode(value)
	if err != nil {
		c.metrics.failure(c.kind, "serialization")
		return zero, fmt.Errorf("%s: %w", nsKey, err)
	}

	// Disk first: memory is only populated once the disk copy exists.
	if c.disk != nil {
		if err := c.disk.Write(nsKey, data); err != nil {
			c.metrics.failure(c.kind, "io")
			return zero, err
		}
	}
	c.memory.Put(nsKey, data)

	return value, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *TieredCache[V]) decode(nsKey string, data []byte) (V, error) {
	var v V
	if err := c.codec.Decode(data, &v); err != nil {
		c.metrics.failure(c.kind, "serialization")
		var zero V
		return zero, fmt.Errorf("%s: %w", nsKey, err)
	}
	return v, nil
}

// Clear removes every key held in memory from both tiers. The memory lock is
// held for the whole operation, disk deletes included, so other users of the
// cache block until it returns. Disk files of keys that already left memory
// (TTL expiry, eviction) are not removed.
func (c *TieredCache[V]) Clear() {
	c.memory.ClearFunc(func(nsKey string) {
		if c.disk != nil {
			c.disk.Remove(nsKey)
		}
	})
	c.metrics.cleared(c.kind)
	c.logger.Debug("Cache cleared", "kind", c.kind)
}

// Invalidate drops key from both tiers.
func (c *TieredCache[V]) Invalidate(key string) {
	nsKey := NamespacedKey(c.kind, key)
	c.memory.Delete(nsKey)
	if c.disk != nil {
		c.disk.Remove(nsKey)
	}
}

// Stats returns the memory tier statistics.
func (c *TieredCache[V]) Stats() CacheStats {
	return c.memory.Stats()
}

// Close releases the codec resources.
func (c *TieredCache[V]) Close() error {
	return c.codec.Close()
}
