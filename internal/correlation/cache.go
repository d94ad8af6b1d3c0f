// Package correlation provides the process-wide ledger that lets the
// disjoint callback invocations of one request agree they belong to the
// same trace.
//
// Keys are lowercase hex trace identifiers; values are contexts carrying
// the request's active span. Entries are removed explicitly when the server
// span completes. Capacity-driven LRU eviction is a safety net for requests
// whose terminal phase never fires (aborted connections), not a normal
// code path.
package correlation

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCapacity bounds the default cache. Normal operation removes
// entries at span completion, so the bound only matters under leaks.
const DefaultCapacity = 1_000_000

// Cache maps hex trace identifiers to in-flight trace contexts.
//
// All operations are atomic and safe under concurrent access from unrelated
// keys. Same-key ordering within one request is guaranteed by the host,
// which serializes a request's own phases.
type Cache interface {
	// Get returns the context for key without removing it. Absence means
	// no active trace for this request; callers degrade to a no-op.
	Get(key string) (context.Context, bool)
	// Store inserts or overwrites, last write wins.
	Store(key string, cx context.Context)
	// Remove atomically takes ownership of the entry. Idempotent: a second
	// call for the same key returns false.
	Remove(key string) (context.Context, bool)
	// Len reports the number of live entries.
	Len() int
}

type lruCache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, context.Context]
	onEvict func(key string)
	// removing suppresses the eviction hook while Remove holds the lock:
	// simplelru fires its callback for explicit removes too, but only
	// capacity-driven evictions are evictions to us.
	removing bool
}

// New creates a Cache bounded to capacity entries with LRU eviction.
// onEvict, if non-nil, runs for each evicted key (not for explicit removes).
func New(capacity int, onEvict func(key string)) (Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	c := &lruCache{onEvict: onEvict}
	entries, err := simplelru.NewLRU(capacity, func(key string, _ context.Context) {
		if !c.removing && c.onEvict != nil {
			c.onEvict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *lruCache) Get(key string) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key)
}

func (c *lruCache) Store(key string, cx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, cx)
}

func (c *lruCache) Remove(key string) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Peek avoids promoting an entry we are about to drop, and Remove with
	// the lock held makes take-ownership atomic.
	cx, ok := c.entries.Peek(key)
	if !ok {
		return nil, false
	}
	c.removing = true
	c.entries.Remove(key)
	c.removing = false
	return cx, true
}

func (c *lruCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

var (
	defaultOnce  sync.Once
	defaultCache Cache
)

// Default returns the lazily-initialized process-wide cache shared by all
// worker threads.
func Default() Cache {
	defaultOnce.Do(func() {
		c, err := New(DefaultCapacity, nil)
		if err != nil {
			// Unreachable: DefaultCapacity is positive.
			panic(err)
		}
		defaultCache = c
	})
	return defaultCache
}
