package expressions

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize fits "tens of distinct expressions per session" with
// ample headroom; the same few workflow expressions are re-evaluated
// every tick, so hit rates are effectively 100% after warmup.
const DefaultCacheSize = 128

// CompiledCache is the bounded LRU of compiled expressions, keyed by
// (language, exact source text). It tolerates concurrent readers and
// writers; compilation being pure, last-write-wins is acceptable.
type CompiledCache struct {
	lru    *lru.Cache[cacheKey, Compiled]
	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheKey struct {
	language string
	source   string
}

// NewCompiledCache creates a cache bounded to size entries. A size <= 0
// falls back to DefaultCacheSize.
func NewCompiledCache(size int) *CompiledCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only errors on a non-positive size, which is guarded above.
	c, _ := lru.New[cacheKey, Compiled](size)
	return &CompiledCache{lru: c}
}

// Get returns the cached compiled form for (language, source).
func (c *CompiledCache) Get(language, source string) (Compiled, bool) {
	v, ok := c.lru.Get(cacheKey{language: language, source: source})
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Add stores a compiled form, evicting the least recently used entry
// when the bound is reached.
func (c *CompiledCache) Add(language, source string, compiled Compiled) {
	c.lru.Add(cacheKey{language: language, source: source}, compiled)
}

// Len returns the number of cached entries.
func (c *CompiledCache) Len() int { return c.lru.Len() }

// Purge drops all entries.
func (c *CompiledCache) Purge() { c.lru.Purge() }

// Metrics returns the cumulative hit and miss counts.
func (c *CompiledCache) Metrics() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
