// Package query is the process-wide query cache. Entries are addressed by
// structural keys, concurrent loads of an equal key share one fetch, and
// invalidation marks entries stale and refetches the ones being observed.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"gestorebinder/internal/cache"
	applog "gestorebinder/internal/log"
)

const (
	defaultMaxEntries = 512
	defaultTTL        = 30 * time.Minute
)

// Fetcher loads the data for one key.
type Fetcher func(ctx context.Context) (any, error)

// Listener receives the outcome of every load of an observed key.
type Listener func(data any, err error)

// State is a snapshot of one entry.
type State struct {
	Data      any
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

type entry struct {
	key Key
	State
}

type flight struct {
	key Key
	n   int
}

type observer struct {
	key    Key
	fetch  Fetcher
	listen Listener
}

// Cache is safe for concurrent use. Only mutation handlers are expected to
// call Invalidate.
type Cache struct {
	mu        sync.Mutex
	entries   *cache.LRUCache[*entry]
	group     singleflight.Group
	observers map[uint64]*observer
	nextID    uint64
	// gens counts invalidations per key. A load started under an older
	// generation must not overwrite the entry.
	gens     map[string]uint64
	inflight map[string]*flight
	logger    *applog.Logger
	now       func() time.Time
}

// Option customises a Cache.
type Option func(*cacheOptions)

type cacheOptions struct {
	maxEntries int
	ttl        time.Duration
	logger     *applog.Logger
}

// WithMaxEntries bounds the number of retained entries.
func WithMaxEntries(n int) Option {
	return func(o *cacheOptions) { o.maxEntries = n }
}

// WithTTL sets how long an unused entry is retained. Zero keeps entries
// until evicted for capacity.
func WithTTL(d time.Duration) Option {
	return func(o *cacheOptions) { o.ttl = d }
}

func WithLogger(logger *applog.Logger) Option {
	return func(o *cacheOptions) { o.logger = logger }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	o := cacheOptions{maxEntries: defaultMaxEntries, ttl: defaultTTL, logger: applog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{
		entries:   cache.NewLRUCache[*entry](o.maxEntries, o.ttl),
		observers: make(map[uint64]*observer),
		gens:      make(map[string]uint64),
		inflight:  make(map[string]*flight),
		logger:    o.logger.WithComponent(applog.ComponentQuery),
		now:       time.Now,
	}
	c.entries.OnEvict(func(name string, _ *entry) {
		c.logger.Debug("Evicted", applog.FieldQueryKey, name)
	})
	return c
}

// Entries exposes the backing store so a cache.Manager can drop expired
// entries between reads.
func (c *Cache) Entries() cache.Cleaner {
	return c.entries
}

// Fetch returns the cached data for key when it is fresh, otherwise loads it
// with fn. Concurrent calls for an equal key share a single fn invocation.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	if st, ok := c.Peek(key); ok && !st.Stale && st.Err == nil {
		if v, ok := st.Data.(T); ok {
			return v, nil
		}
	}
	v, err := c.load(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query: entry %s holds %T", key, v)
	}
	return typed, nil
}

// GetData returns the data last loaded for key, fresh or stale.
func GetData[T any](c *Cache, key Key) (T, bool) {
	var zero T
	st, ok := c.Peek(key)
	if !ok || st.Data == nil {
		return zero, false
	}
	v, ok := st.Data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Peek returns the state of key without loading it.
func (c *Cache) Peek(key Key) (State, bool) {
	e, ok := c.entries.Get(key.String())
	if !ok {
		return State{}, false
	}
	return e.State, true
}

func (c *Cache) load(ctx context.Context, key Key, fn Fetcher) (any, error) {
	name := key.String()
	v, err, shared := c.group.Do(name, func() (any, error) {
		gen := c.begin(key)
		data, err := fn(ctx)
		c.finish(key, gen, data, err)
		return data, err
	})
	if shared {
		c.logger.Debug("Fetch shared", applog.FieldQueryKey, name)
	}
	return v, err
}

// begin records an in-flight load of key and returns the generation it runs
// under.
func (c *Cache) begin(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := key.String()
	f, ok := c.inflight[name]
	if !ok {
		f = &flight{key: key}
		c.inflight[name] = f
	}
	f.n++
	return c.gens[name]
}

// finish stores the outcome of a load unless key was invalidated while it
// ran. A superseded result is dropped: the entry stays stale and the next
// read loads again.
func (c *Cache) finish(key Key, gen uint64, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := key.String()
	if f, ok := c.inflight[name]; ok {
		if f.n--; f.n <= 0 {
			delete(c.inflight, name)
		}
	}
	if c.gens[name] != gen {
		c.logger.Debug("Dropped superseded load", applog.FieldQueryKey, name)
		return
	}
	c.storeLocked(key, data, err)
}

// storeLocked records a load outcome. A failed load keeps the previous data
// and leaves the entry stale so the next read retries. c.mu must be held.
func (c *Cache) storeLocked(key Key, data any, err error) {
	next := &entry{key: key, State: State{Data: data, UpdatedAt: c.now()}}
	if err != nil {
		next.State = State{Err: err, Stale: true}
		if prev, ok := c.entries.Get(key.String()); ok {
			next.Data = prev.Data
			next.UpdatedAt = prev.UpdatedAt
		}
	}
	c.entries.Set(key.String(), next)
}

// Observe registers interest in key. While observed, invalidating the key
// refetches it with fetch and reports the outcome to listen. The returned
// function removes the observer.
func (c *Cache) Observe(key Key, fetch Fetcher, listen Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = &observer{key: key, fetch: fetch, listen: listen}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// Invalidate marks every entry whose key has one of prefixes as prefix
// stale, then refetches the matching observed keys and waits for them. Loads
// of matching keys already in flight are superseded: their results are not
// stored and the refetch does not join them. The first refetch error is
// returned; the remaining refetches still complete.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...Key) error {
	matches := func(k Key) bool {
		for _, p := range prefixes {
			if k.HasPrefix(p) {
				return true
			}
		}
		return false
	}

	c.mu.Lock()
	marked := 0
	for _, name := range c.entries.Keys() {
		e, ok := c.entries.Get(name)
		if !ok || !matches(e.key) {
			continue
		}
		stale := *e
		stale.Stale = true
		c.entries.Set(name, &stale)
		c.gens[name]++
		marked++
	}
	var superseded []string
	for name, f := range c.inflight {
		if !matches(f.key) {
			continue
		}
		if _, ok := c.entries.Get(name); !ok {
			c.gens[name]++
		}
		superseded = append(superseded, name)
	}

	type refetch struct {
		key       Key
		fetch     Fetcher
		listeners []Listener
	}
	byKey := make(map[string]*refetch)
	for _, o := range c.observers {
		if !matches(o.key) {
			continue
		}
		r, ok := byKey[o.key.String()]
		if !ok {
			r = &refetch{key: o.key, fetch: o.fetch}
			byKey[o.key.String()] = r
		}
		r.listeners = append(r.listeners, o.listen)
	}
	c.mu.Unlock()

	for _, name := range superseded {
		c.group.Forget(name)
	}

	c.logger.Debug("Invalidated",
		applog.FieldOperation, applog.OpInvalidate,
		"prefixes", len(prefixes),
		"marked", marked,
		"refetching", len(byKey),
	)

	var g errgroup.Group
	for _, r := range byKey {
		g.Go(func() error {
			data, err := c.load(ctx, r.key, r.fetch)
			for _, l := range r.listeners {
				if l != nil {
					l(data, err)
				}
			}
			if err != nil {
				c.logger.Warn("Refetch failed", applog.FieldQueryKey, r.key.String(), applog.FieldError, err)
				return fmt.Errorf("query: refetch %s: %w", r.key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Clear drops every entry. Observers stay registered.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Clear()
}

// Size returns the number of retained entries.
func (c *Cache) Size() int {
	return c.entries.Size()
}
