package feed

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"ideon/internal/models"
)

// ResultCache memoizes feed results per collection version. Any mutation
// bumps the version, so stale entries are simply never hit again and age out
// of the LRU.
type ResultCache struct {
	lru *lru.Cache[string, []*models.Idea]
}

// NewResultCache creates a cache holding up to size feed results.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = 256
	}
	l, err := lru.New[string, []*models.Idea](size)
	if err != nil {
		return nil, fmt.Errorf("create feed cache: %w", err)
	}
	return &ResultCache{lru: l}, nil
}

func cacheKey(version uint64, q Query) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", version, q.Scope, q.Sort, q.ViewerID, NormalizeQuery(q.Search))
}

// Get returns a cached result for q at version.
func (c *ResultCache) Get(version uint64, q Query) ([]*models.Idea, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(cacheKey(version, q))
}

// Add stores a result. Callers must treat cached slices as read-only.
func (c *ResultCache) Add(version uint64, q Query, ideas []*models.Idea) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(version, q), ideas)
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len reports the number of cached results.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
