package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/graphcache/codec"
	"github.com/jonwraymond/graphcache/observe"
	"github.com/jonwraymond/graphcache/recordstore"
	"github.com/jonwraymond/graphcache/storage"
)

// Operation names used for telemetry and persistence decisions.
const (
	OpHydrate       = "hydrate"
	OpClearStorage  = "clear_storage"
	OpWriteField    = "write_field"
	OpWriteNode     = "write_node"
	OpWriteRootCall = "write_root_call"
	OpReadNode      = "read_node"
	OpReadRootCall  = "read_root_call"
	OpFlush         = "flush"
	OpLoad          = "load"
)

const (
	lockShared    = "shared"
	lockExclusive = "exclusive"
)

// Options configures a GraphCache.
type Options struct {
	// CacheKey is the storage key of the snapshot. Default: DefaultCacheKey
	CacheKey string

	// Storage persists the snapshot. Default: a new storage.MemoryAdapter
	Storage storage.Adapter

	// Persist selects which writes persist. Default: PersistOnFieldWrite
	Persist PersistPolicy

	// Middleware instruments operations. Default: observe.NopMiddleware()
	Middleware *observe.Middleware
}

// Stats is a point-in-time view of a GraphCache.
type Stats struct {
	CacheKey        string
	Records         int
	RootCalls       int
	Dirty           bool
	Persists        uint64
	PersistFailures uint64
	LastPersist     time.Time
}

// Loader fetches a node that is not cached. Returning a nil record means the
// node does not exist.
type Loader func(ctx context.Context, id string) (recordstore.Record, error)

// GraphCache is a concurrency-safe record store with background hydration
// and snapshot persistence.
//
// Contract:
//   - Concurrency: safe for concurrent use. Writers are exclusive and run in
//     admission order; readers run in parallel.
//   - Context: ctx bounds the wait for the lock. Once admitted, an operation
//     runs to completion, including its storage call.
//   - Ownership: written values are copied in; read values are copies.
type GraphCache struct {
	key     string
	storage storage.Adapter
	persist PersistPolicy
	mw      *observe.Middleware
	lock    *rwLock
	loads   singleflight.Group

	hydrated   chan struct{}
	hydrateErr error

	// Guarded by lock.
	store           *recordstore.Store
	dirty           bool
	persists        uint64
	persistFailures uint64
	lastPersist     time.Time
}

// New creates a GraphCache and starts hydrating it from storage. The lock is
// taken before New returns, so every later operation waits for hydration.
func New(ctx context.Context, opts Options) (*GraphCache, error) {
	key := opts.CacheKey
	if key == "" {
		key = DefaultCacheKey
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	switch opts.Persist {
	case PersistOnFieldWrite, PersistOnEveryWrite, PersistManual:
	default:
		return nil, fmt.Errorf("cache: unknown persist policy %v", opts.Persist)
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryAdapter()
	}
	if opts.Middleware == nil {
		opts.Middleware = observe.NopMiddleware()
	}

	c := &GraphCache{
		key:      key,
		storage:  opts.Storage,
		persist:  opts.Persist,
		mw:       opts.Middleware,
		lock:     newRWLock(),
		hydrated: make(chan struct{}),
		store:    recordstore.New(),
	}
	if !c.lock.TryLock() {
		return nil, errors.New("cache: lock unavailable at creation")
	}
	go c.hydrate(context.WithoutCancel(ctx))
	return c, nil
}

func (c *GraphCache) hydrate(ctx context.Context) {
	meta := c.meta(OpHydrate, "", lockExclusive)
	err := c.mw.Run(ctx, meta, func(ctx context.Context) error {
		raw, ok, err := c.storage.GetItem(ctx, c.key)
		if err != nil || !ok {
			return err
		}
		c.mw.Metrics().RecordSnapshot(ctx, meta, len(raw))
		tree, err := codec.Unmarshal([]byte(raw))
		if err != nil {
			return err
		}
		return c.store.IngestJSON(tree)
	})
	if err != nil {
		c.mw.Logger().With(meta).Warn(ctx, "hydration failed, starting with an empty cache",
			observe.Field{Key: "error", Value: err.Error()})
	}
	c.hydrateErr = err
	c.lock.Unlock()
	close(c.hydrated)
}

// WaitHydrated blocks until hydration has finished and returns its error.
// A hydration error does not make the cache unusable; it starts empty.
func (c *GraphCache) WaitHydrated(ctx context.Context) error {
	if c == nil {
		return ErrNilCache
	}
	select {
	case <-c.hydrated:
		return c.hydrateErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HydrationErr returns the hydration error, or nil while hydration is still
// running or when it succeeded.
func (c *GraphCache) HydrationErr() error {
	if c == nil {
		return ErrNilCache
	}
	select {
	case <-c.hydrated:
		return c.hydrateErr
	default:
		return nil
	}
}

// Hydrated reports whether hydration has finished, successfully or not.
func (c *GraphCache) Hydrated() bool {
	if c == nil {
		return false
	}
	select {
	case <-c.hydrated:
		return true
	default:
		return false
	}
}

// Key returns the storage key of the snapshot.
func (c *GraphCache) Key() string { return c.key }

// PersistPolicy returns the cache's persistence policy.
func (c *GraphCache) PersistPolicy() PersistPolicy { return c.persist }

// ClearStorage removes the persisted snapshot and empties the cache. The
// in-memory store is replaced even when removal fails; the removal error is
// returned and the cache stays dirty, so the next persist overwrites the
// stale snapshot.
func (c *GraphCache) ClearStorage(ctx context.Context) error {
	if c == nil {
		return ErrNilCache
	}
	return c.exclusive(ctx, c.meta(OpClearStorage, "", lockExclusive), func(ctx context.Context) error {
		err := c.storage.RemoveItem(ctx, c.key)
		c.store = recordstore.New()
		c.dirty = err != nil
		return err
	})
}

// WriteField sets one field of the node id, creating the record when
// needed. typeName only applies on creation. Under PersistOnFieldWrite and
// PersistOnEveryWrite the snapshot is persisted before WriteField returns;
// on failure the mutation is kept and the error is returned.
func (c *GraphCache) WriteField(ctx context.Context, id, field string, value any, typeName string) error {
	if c == nil {
		return ErrNilCache
	}
	value = codec.Copy(value)
	return c.exclusive(ctx, c.meta(OpWriteField, id, lockExclusive), func(ctx context.Context) error {
		c.store.WriteField(id, field, value, typeName)
		return c.afterWrite(ctx, OpWriteField)
	})
}

// WriteNode replaces the record of node id.
func (c *GraphCache) WriteNode(ctx context.Context, id string, rec recordstore.Record) error {
	if c == nil {
		return ErrNilCache
	}
	rec = copyRecord(rec)
	return c.exclusive(ctx, c.meta(OpWriteNode, id, lockExclusive), func(ctx context.Context) error {
		c.store.WriteRecord(id, rec)
		return c.afterWrite(ctx, OpWriteNode)
	})
}

// WriteRootCall points the root call (storageKey, argValue) at node id.
func (c *GraphCache) WriteRootCall(ctx context.Context, storageKey, argValue, id string) error {
	if c == nil {
		return ErrNilCache
	}
	return c.exclusive(ctx, c.meta(OpWriteRootCall, id, lockExclusive), func(ctx context.Context) error {
		c.store.WriteRootCall(storageKey, argValue, id)
		return c.afterWrite(ctx, OpWriteRootCall)
	})
}

// ReadNode returns a copy of the record of node id as of lock acquisition.
func (c *GraphCache) ReadNode(ctx context.Context, id string) (recordstore.Record, bool, error) {
	if c == nil {
		return nil, false, ErrNilCache
	}
	var (
		rec recordstore.Record
		ok  bool
	)
	err := c.shared(ctx, c.meta(OpReadNode, id, lockShared), func(context.Context) error {
		var live recordstore.Record
		if live, ok = c.store.ReadNode(id); ok {
			rec = copyRecord(live)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, ok, nil
}

// ReadRootCall resolves a root call to a node id. The node itself may be
// absent from the cache.
func (c *GraphCache) ReadRootCall(ctx context.Context, callName, callValue string) (string, bool, error) {
	if c == nil {
		return "", false, ErrNilCache
	}
	var (
		id string
		ok bool
	)
	err := c.shared(ctx, c.meta(OpReadRootCall, "", lockShared), func(context.Context) error {
		id, ok = c.store.DataIDForRootCall(callName, callValue)
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return id, ok, nil
}

// Flush persists the snapshot if anything changed since the last successful
// persist.
func (c *GraphCache) Flush(ctx context.Context) error {
	if c == nil {
		return ErrNilCache
	}
	return c.exclusive(ctx, c.meta(OpFlush, "", lockExclusive), func(ctx context.Context) error {
		if !c.dirty {
			return nil
		}
		return c.persistLocked(ctx)
	})
}

// Stats returns counters and sizes as of lock acquisition.
func (c *GraphCache) Stats(ctx context.Context) (Stats, error) {
	if c == nil {
		return Stats{}, ErrNilCache
	}
	if err := c.lock.RLock(ctx); err != nil {
		return Stats{}, err
	}
	defer c.lock.RUnlock()
	return Stats{
		CacheKey:        c.key,
		Records:         c.store.Len(),
		RootCalls:       c.store.RootCallLen(),
		Dirty:           c.dirty,
		Persists:        c.persists,
		PersistFailures: c.persistFailures,
		LastPersist:     c.lastPersist,
	}, nil
}

// ReadNodeOrLoad returns the cached record of node id, or calls load on a
// miss and caches its result as WriteNode would. Concurrent misses for the
// same id share one load. Load errors are returned and not cached.
func (c *GraphCache) ReadNodeOrLoad(ctx context.Context, id string, load Loader) (recordstore.Record, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	rec, ok, err := c.ReadNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return rec, nil
	}

	v, err, _ := c.loads.Do(id, func() (any, error) {
		var stored recordstore.Record
		err := c.mw.Run(ctx, c.meta(OpLoad, id, lockExclusive), func(ctx context.Context) error {
			loaded, err := load(ctx, id)
			if err != nil {
				return err
			}
			if loaded == nil {
				return ErrNotFound
			}
			loaded = copyRecord(loaded)
			if err := c.lock.Lock(ctx); err != nil {
				return err
			}
			defer c.lock.Unlock()
			// A writer may have filled the node while load ran.
			if existing, ok := c.store.ReadNode(id); ok {
				stored = copyRecord(existing)
				return nil
			}
			c.store.WriteRecord(id, loaded)
			stored = copyRecord(loaded)
			return c.afterWrite(context.WithoutCancel(ctx), OpWriteNode)
		})
		if stored == nil {
			return nil, err
		}
		// The node is cached even when persisting it failed.
		return stored, err
	})
	rec, _ = v.(recordstore.Record)
	if rec != nil {
		rec = copyRecord(rec)
	}
	return rec, err
}

func (c *GraphCache) meta(op, id, lock string) observe.OpMeta {
	return observe.OpMeta{Op: op, CacheKey: c.key, NodeID: id, Lock: lock}
}

// exclusive runs fn under the write lock. fn gets a context that is not
// cancelled, so admitted work and its storage call always complete.
func (c *GraphCache) exclusive(ctx context.Context, meta observe.OpMeta, fn observe.OpFunc) error {
	return c.mw.Run(ctx, meta, func(ctx context.Context) error {
		if err := c.lock.Lock(ctx); err != nil {
			return err
		}
		defer c.lock.Unlock()
		return fn(context.WithoutCancel(ctx))
	})
}

func (c *GraphCache) shared(ctx context.Context, meta observe.OpMeta, fn observe.OpFunc) error {
	return c.mw.Run(ctx, meta, func(ctx context.Context) error {
		if err := c.lock.RLock(ctx); err != nil {
			return err
		}
		defer c.lock.RUnlock()
		return fn(ctx)
	})
}

// afterWrite marks the store dirty and persists if the policy asks for it.
// Must hold the write lock.
func (c *GraphCache) afterWrite(ctx context.Context, op string) error {
	c.dirty = true
	if !c.persist.persists(op) {
		return nil
	}
	return c.persistLocked(ctx)
}

// persistLocked writes the whole store under the cache key. Must hold the
// write lock.
func (c *GraphCache) persistLocked(ctx context.Context) error {
	data, err := codec.Marshal(c.store.EgestJSON())
	if err == nil {
		c.mw.Metrics().RecordSnapshot(ctx, c.meta(OpFlush, "", lockExclusive), len(data))
		err = c.storage.SetItem(ctx, c.key, string(data))
	}
	if err != nil {
		c.persistFailures++
		c.mw.Logger().Warn(ctx, "snapshot not persisted, durable copy is stale",
			observe.Field{Key: "cache.key", Value: c.key},
			observe.Field{Key: "error", Value: err.Error()})
		return err
	}
	c.dirty = false
	c.persists++
	c.lastPersist = time.Now()
	return nil
}

func copyRecord(rec recordstore.Record) recordstore.Record {
	if rec == nil {
		return nil
	}
	return codec.Copy(rec).(recordstore.Record)
}
