package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt int64 // unix nanos; 0 means no expiry
}

// TTLCache is a lock-free concurrent map with per-entry expiry. Expired
// entries are dropped lazily on read; concurrent writes to the same key
// are last-writer-wins.
type TTLCache struct {
	items sync.Map
}

// NewTTLCache creates an empty cache.
func NewTTLCache() *TTLCache {
	return &TTLCache{}
}

// Set stores a value with the given TTL. A zero TTL stores forever.
func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	c.items.Store(key, entry{value: value, expiresAt: exp})
}

// Get returns the live value for key, dropping it if expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	v, ok := c.items.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if e.expiresAt > 0 && time.Now().UnixNano() > e.expiresAt {
		c.items.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Delete removes a key.
func (c *TTLCache) Delete(key string) {
	c.items.Delete(key)
}

// Purge removes every expired entry. Callers with long-lived caches can
// run this on their own schedule; short-TTL users never need to.
func (c *TTLCache) Purge() {
	now := time.Now().UnixNano()
	c.items.Range(func(key, v interface{}) bool {
		e := v.(entry)
		if e.expiresAt > 0 && now > e.expiresAt {
			c.items.Delete(key)
		}
		return true
	})
}

// Len counts live entries.
func (c *TTLCache) Len() int {
	n := 0
	now := time.Now().UnixNano()
	c.items.Range(func(_, v interface{}) bool {
		e := v.(entry)
		if e.expiresAt == 0 || now <= e.expiresAt {
			n++
		}
		return true
	})
	return n
}
