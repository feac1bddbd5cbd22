package batch

import (
	"context"
	"sync"
)

// RefCache is a populate-once byte cache for shared reference assets, such
// as a character sheet needed by every scene of a project. The first caller
// for a key downloads; concurrent callers for the same key block until that
// download finishes instead of re-fetching. A failed fetch clears the slot
// so a later call may try again.
type RefCache struct {
	mu      sync.Mutex
	entries map[string]*refEntry
}

type refEntry struct {
	ready chan struct{}
	data  []byte
	err   error
}

func NewRefCache() *RefCache {
	return &RefCache{entries: make(map[string]*refEntry)}
}

// Get returns the cached bytes for key, fetching them with fetch on first
// use. fetch runs at most once per key at a time regardless of caller count.
func (c *RefCache) Get(ctx context.Context, key string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &refEntry{ready: make(chan struct{})}
		c.entries[key] = entry
		c.mu.Unlock()

		entry.data, entry.err = fetch(ctx)
		if entry.err != nil {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		close(entry.ready)
		return entry.data, entry.err
	}
	c.mu.Unlock()

	select {
	case <-entry.ready:
		return entry.data, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of populated or in-flight entries.
func (c *RefCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
