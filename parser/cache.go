package parser

import (
	"sync"

	"github.com/jcorbin/cmdlang/blockdata"
	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

// Cache memoises verbatim source strings to their parsed Script, so that
// identical source text is parsed at most once. It is process-wide and
// never invalidated, since source strings are values, not references;
// lookups and inserts are serialized by a single mutex.
type Cache struct {
	mu      sync.Mutex
	entries map[string]syntax.Script
}

// NewCache returns an empty, ready to use Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]syntax.Script)}
}

// Parse returns the cached Script for src if present; otherwise it parses
// src via Parse, caches the result on success, and returns it. A failed
// parse is never cached, so a subsequent call with corrected block data (or
// simply retried) can succeed.
func (c *Cache) Parse(values *values.Store, cat blockdata.Catalogue, name, src string) (syntax.Script, error) {
	c.mu.Lock()
	if s, ok := c.entries[src]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := Parse(values, cat, name, src)
	if err != nil {
		return syntax.Script{}, err
	}

	c.mu.Lock()
	c.entries[src] = s
	c.mu.Unlock()
	return s, nil
}
