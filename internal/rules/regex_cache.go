package rules

import (
	"fmt"
	"regexp"

	"github.com/maypok86/otter"
)

// RegexCache holds compiled rule regexes. It is owned by the caller (one per
// server or per batch) and safe for concurrent use. A nil *RegexCache
// compiles on every call.
type RegexCache struct {
	store otter.Cache[string, *regexp.Regexp]
}

// MinCacheCapacity is the smallest capacity otter will store entries at;
// below it every Set is rejected.
const MinCacheCapacity = 10

// NewRegexCache builds a cache bounded to capacity patterns.
func NewRegexCache(capacity int) (*RegexCache, error) {
	if capacity < MinCacheCapacity {
		return nil, fmt.Errorf("regex cache capacity must be at least %d, got %d", MinCacheCapacity, capacity)
	}
	store, err := otter.MustBuilder[string, *regexp.Regexp](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build regex cache: %w", err)
	}
	return &RegexCache{store: store}, nil
}

// Compile checks pattern with CheckPattern and returns its compiled form.
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	if err := CheckPattern(pattern); err != nil {
		return nil, err
	}
	if c != nil {
		if re, ok := c.store.Get(pattern); ok {
			return re, nil
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	if c != nil {
		// Set only refuses entries below MinCacheCapacity, which
		// NewRegexCache rules out; a refused entry is recompiled next time.
		c.store.Set(pattern, re)
	}
	return re, nil
}

// Len reports the number of cached patterns.
func (c *RegexCache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Size()
}

// Close stops the cache's background maintenance.
func (c *RegexCache) Close() {
	if c != nil {
		c.store.Close()
	}
}
