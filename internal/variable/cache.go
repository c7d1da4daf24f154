package variable

import (
	"fmt"

	"github.com/maypok86/otter"
)

// MinCacheCapacity is the smallest capacity otter stores entries at.
const MinCacheCapacity = 10

// Cache memoizes compiled templates by pattern, bounded to a fixed number of
// patterns. It is safe for concurrent callers.
type Cache struct {
	store otter.Cache[string, *Template]
}

// NewCache returns an empty template cache holding at most capacity patterns.
func NewCache(capacity int) (*Cache, error) {
	if capacity < MinCacheCapacity {
		return nil, fmt.Errorf("template cache capacity must be at least %d, got %d", MinCacheCapacity, capacity)
	}
	store, err := otter.MustBuilder[string, *Template](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build template cache: %w", err)
	}
	return &Cache{store: store}, nil
}

// Get returns the compiled template for pattern, compiling it on first use.
// A nil cache compiles every time.
func (c *Cache) Get(pattern string) *Template {
	if c == nil {
		return Compile(pattern)
	}
	if t, ok := c.store.Get(pattern); ok {
		return t
	}
	t := Compile(pattern)
	c.store.Set(pattern, t)
	return t
}

// Len reports the number of cached templates.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Size()
}

// Close stops the cache's background maintenance.
func (c *Cache) Close() {
	if c != nil {
		c.store.Close()
	}
}
