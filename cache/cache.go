package cache

import (
	"context"
	"encoding/binary"
	"log/slog"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage/badger"
)

const defaultTTL = time.Hour

// Codec converts cached values to and from bytes.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// StringCodec is a Codec for plain string values.
type StringCodec struct{}

func (StringCodec) Encode(v string) ([]byte, error) { return []byte(v), nil }
func (StringCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}

// Cache is a named TTL cache persisted in the shared BadgerDB backend.
// Entries expire a fixed interval after they were stored; the interval is
// set at construction and applies to every entry.
//
// Each entry is stored as an 8-byte creation timestamp followed by the
// codec-encoded value. The timestamp backs the freshness check on read,
// with BadgerDB's own entry TTL reclaiming space underneath.
type Cache[V any] struct {
	name    string
	backend *badger.Backend
	codec   Codec[V]
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]*call[V]
}

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Option configures a Cache.
type Option[V any] func(*Cache[V]) error

// WithTTL sets the expiry interval for all entries.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) error {
		if ttl <= 0 {
			return ErrInvalidTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithClock overrides the cache's time source.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) error {
		if now == nil {
			return ErrNilClock
		}
		c.now = now
		return nil
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(c *Cache[V]) error {
		if logger == nil {
			return ErrNilLogger
		}
		c.logger = logger
		return nil
	}
}

// New creates a named cache on the given backend.
func New[V any](name string, backend *badger.Backend, codec Codec[V], opts ...Option[V]) (*Cache[V], error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if backend == nil {
		return nil, ErrNilBackend
	}
	if codec == nil {
		return nil, ErrNilCodec
	}

	c := &Cache[V]{
		name:     name,
		backend:  backend,
		codec:    codec,
		ttl:      defaultTTL,
		now:      time.Now,
		logger:   slog.Default().With("component", "cache", "cache", name),
		inFlight: make(map[string]*call[V]),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Key derives a cache key from the given parts. The derivation is
// deterministic, so identical parts always address the same entry.
func Key(parts ...string) string {
	return core.IDFromContent(strings.Join(parts, "\x1f")).String()
}

// Lookup returns the cached value for key if present and fresh.
func (c *Cache[V]) Lookup(key string) (V, bool) {
	var zero V
	var value V
	found := false

	err := c.backend.WithTx(func(tx *badgerdb.Txn) error {
		item, err := tx.Get(badger.MakeCacheKey(c.name, key))
		if err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < 8 {
				return nil
			}
			createdAt := time.UnixMicro(int64(binary.BigEndian.Uint64(val[:8])))
			if c.now().Sub(createdAt) >= c.ttl {
				return nil
			}
			decoded, err := c.codec.Decode(val[8:])
			if err != nil {
				return err
			}
			value = decoded
			found = true
			return nil
		})
	}, false)
	if err != nil {
		c.logger.Warn("cache lookup failed", "key", key, "error", err)
		return zero, false
	}
	if !found {
		return zero, false
	}
	return value, true
}

// Store writes a value under key with the cache's TTL.
// Storage failures are logged and swallowed: a cache write must never fail
// the computation it is caching.
func (c *Cache[V]) Store(key string, v V) {
	encoded, err := c.codec.Encode(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}

	buf := make([]byte, 8+len(encoded))
	binary.BigEndian.PutUint64(buf[:8], uint64(c.now().UnixMicro()))
	copy(buf[8:], encoded)

	entry := badgerdb.NewEntry(badger.MakeCacheKey(c.name, key), buf).WithTTL(c.ttl)
	if err := c.backend.SetEntry(entry); err != nil {
		c.logger.Warn("cache store failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Concurrent callers for the same key share one computation.
// Compute errors are returned to every waiter and nothing is stored.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Lookup(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if existing, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		select {
		case <-existing.done:
			return existing.val, existing.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	cl := &call[V]{done: make(chan struct{})}
	c.inFlight[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = compute(ctx)
	if cl.err == nil {
		c.Store(key, cl.val)
	}

	c.mu.Lock()
	delete(c.inFlight, key)
	c.mu.Unlock()
	close(cl.done)

	return cl.val, cl.err
}

// Flush removes every entry belonging to this cache.
func (c *Cache[V]) Flush() error {
	return c.backend.DropPrefix(badger.MakeCachePrefix(c.name))
}
