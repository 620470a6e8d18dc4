// Package cache holds an in-process cache for presigned object URLs.
// Repeat opens of the same document version within the URL's validity
// window reuse the minted URL instead of re-signing.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	url      string
	expireAt time.Time
}

// URLCache is a thread-safe map of object keys to presigned URLs. Entries
// are stored with an expiry earlier than the URL's real one, so a served
// URL always has usable life left for the document server's fetch.
type URLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewURLCache() *URLCache {
	return &URLCache{
		entries: make(map[string]entry),
	}
}

// Get returns the cached URL if it has not expired.
func (c *URLCache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if found && time.Now().Before(e.expireAt) {
		return e.url, true
	}

	return "", false
}

// Set stores a URL until expireAt.
func (c *URLCache) Set(key, url string, expireAt time.Time) {
	c.mu.Lock()
	c.entries[key] = entry{url: url, expireAt: expireAt}
	c.mu.Unlock()
}

// Invalidate drops the entry for key, if any. Called after a version commit
// rewrites the object behind a cached URL.
func (c *URLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep removes expired entries.
func (c *URLCache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expireAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
