package authz

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies one memoized permission set.
type Key struct {
	PrincipalID string
	OrgID       string
}

func (k Key) String() string {
	return k.PrincipalID + "|" + k.OrgID
}

type cacheEntry struct {
	perms    []Permission
	storedAt time.Time
}

// Cache memoizes flattened permission sets per (principal, organization).
// Concurrent loads for the same key are collapsed into a single flight whose
// result every waiter observes. Entries are removed, never mutated in place.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]cacheEntry
	gens    map[Key]uint64
	group   singleflight.Group
	ttl     time.Duration
}

// NewCache constructs a Cache. A zero ttl disables expiry; a positive ttl is
// a safety net on top of explicit invalidation.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[Key]cacheEntry),
		gens:    make(map[Key]uint64),
		ttl:     ttl,
	}
}

// Get returns the cached set for key, if present and fresh.
func (c *Cache) Get(key Key) ([]Permission, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.Invalidate(key)
		return nil, false
	}
	return entry.perms, true
}

// GetOrLoad returns the cached set for key, invoking load at most once across
// concurrent callers when it is absent. The shared load runs detached from
// the caller's context so an abandoned waiter does not cancel it for the
// others; the abandoning caller still gets its context error.
func (c *Cache) GetOrLoad(ctx context.Context, key Key, load func(context.Context) ([]Permission, error)) ([]Permission, error) {
	if perms, ok := c.Get(key); ok {
		return perms, nil
	}

	c.mu.Lock()
	gen := c.gens[key]
	c.gens[key] = gen
	c.mu.Unlock()

	ch := c.group.DoChan(key.String(), func() (any, error) {
		perms, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, gen, perms)
		return perms, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Permission), nil
	}
}

// store records a loaded set unless the key was invalidated while the load
// was in flight, in which case the stale result is dropped.
func (c *Cache) store(key Key, gen uint64, perms []Permission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return
	}
	c.entries[key] = cacheEntry{perms: perms, storedAt: time.Now()}
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gens[key]++
	c.group.Forget(key.String())
}

// InvalidatePrincipal drops every entry belonging to the principal across all
// organizations, for logout and tenant switches.
func (c *Cache) InvalidatePrincipal(principalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		if key.PrincipalID == principalID {
			delete(c.entries, key)
			c.gens[key]++
			c.group.Forget(key.String())
		}
	}
}

// InvalidateAll drops every entry, for role definition changes whose affected
// principals are unknown.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		delete(c.entries, key)
		c.gens[key]++
		c.group.Forget(key.String())
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
