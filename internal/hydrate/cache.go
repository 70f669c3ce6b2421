// Package hydrate carries server-fetched data across the render boundary:
// a per-request prefetcher fills a cache snapshot on the server, and the
// same cache type, in client mode, serves interactive reads without
// refetching what the server already delivered.
package hydrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// The two transport keys, shared verbatim between the server-side prefetch
// and client-side reads. They deliberately carry no locale component:
// switching locales must neither clear nor duplicate these entries.
const (
	KeyUser = "/api/user"
	KeyTeam = "/api/team"
)

// Mode selects the cache lifecycle: a fresh instance per server request, or
// the shared process-wide instance on the client side.
type Mode int

const (
	ModeServer Mode = iota
	ModeClient
)

// Snapshot is the serializable form of a cache, keyed by transport key.
// Absent values are explicit nulls so hydration always defines every key.
type Snapshot map[string]json.RawMessage

// FetchFunc loads the value for a key on a cache miss.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value any
}

type inflight struct {
	done  chan struct{}
	value any
	err   error
}

// Cache is a keyed value cache. Reads never trigger a fetch on their own;
// GetOrFetch fetches at most once per key at a time (concurrent callers for
// the same key share one fetch). Invalidate is synchronous: when it returns
// the entry is gone and the next GetOrFetch will hit the fetcher.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]*inflight
}

var (
	clientOnce  sync.Once
	clientCache *Cache
)

// New returns the cache for the given mode. ModeServer always constructs a
// fresh instance; ModeClient returns the lazily-initialized singleton so the
// cache survives client-side navigations, locale switches included.
func New(mode Mode) *Cache {
	if mode == ModeClient {
		clientOnce.Do(func() {
			clientCache = newCache()
		})
		return clientCache
	}
	return newCache()
}

func newCache() *Cache {
	return &Cache{
		entries:  make(map[string]entry),
		inflight: make(map[string]*inflight),
	}
}

// Hydrate seeds the cache from a snapshot. Existing entries for the same
// keys are overwritten; hydration is the authoritative server state.
func (c *Cache) Hydrate(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, raw := range snap {
		c.entries[key] = entry{value: raw}
	}
}

// Get returns the cached value for key without ever fetching.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores a value directly, replacing any cached entry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value}
}

// GetOrFetch returns the cached value, or runs fetch to populate it.
// Concurrent callers for the same key wait on a single fetch. A fetch error
// is returned to every waiter and nothing is cached.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value, nil
	}
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.value, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	fl.value, fl.err = fetch(ctx)
	close(fl.done)

	c.mu.Lock()
	delete(c.inflight, key)
	if fl.err == nil {
		c.entries[key] = entry{value: fl.value}
	}
	c.mu.Unlock()
	return fl.value, fl.err
}

// Invalidate drops the entry for key. It returns only once the entry is
// removed, so callers can invalidate-then-navigate without racing a stale
// read.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Dehydrate serializes the cache's current entries into a Snapshot. Values
// that are already raw JSON pass through; everything else is marshaled.
func (c *Cache) Dehydrate() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(Snapshot, len(c.entries))
	for key, e := range c.entries {
		switch v := e.value.(type) {
		case json.RawMessage:
			snap[key] = v
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("dehydrate %s: %w", key, err)
			}
			snap[key] = raw
		}
	}
	return snap, nil
}
