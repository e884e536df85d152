package download

import (
	"sync"
	"time"
)

// Cache remembers recently downloaded resource URLs so repeated batches skip
// work. Entries expire after the configured duration; a zero duration
// disables the cache entirely.
type Cache struct {
	enabled  bool
	duration time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewCache(duration time.Duration) *Cache {
	return &Cache{
		enabled:  duration > 0,
		duration: duration,
		seen:     make(map[string]time.Time),
	}
}

// Claim reports whether url was fetched within the cache window and, if not,
// records it. Check and record are a single critical section so two workers
// racing on the same URL cannot both proceed.
func (c *Cache) Claim(url string) bool {
	if c == nil || !c.enabled {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if at, ok := c.seen[url]; ok && now.Before(at.Add(c.duration)) {
		return false
	}
	c.seen[url] = now
	return true
}

// Forget drops an entry, used when a claimed download fails so a later batch
// retries it.
func (c *Cache) Forget(url string) {
	if c == nil || !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, url)
}
