package cache

import (
	"sync"
	"time"

	"github.com/snapetech/mediadl/internal/media"
)

// DefaultTTL is how long a fetched artifact is served from memory.
const DefaultTTL = 24 * time.Hour

type entry struct {
	value    media.Artifact
	storedAt time.Time
}

// Results is a TTL-bounded URL → artifact store. Safe for concurrent use.
// An entry is visible while now-storedAt <= ttl; older entries are absent even
// before EvictExpired removes them. There is no size bound.
type Results struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// NewResults returns an empty cache. ttl <= 0 uses DefaultTTL.
func NewResults(ttl time.Duration) *Results {
	return NewResultsWithClock(ttl, time.Now)
}

// NewResultsWithClock is NewResults with an injected clock.
func NewResultsWithClock(ttl time.Duration, now func() time.Time) *Results {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Results{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// TTL returns the configured time-to-live.
func (c *Results) TTL() time.Duration { return c.ttl }

// Get returns the artifact stored for key if it has not expired.
// An expired entry is dropped on the way out.
func (c *Results) Get(key string) (media.Artifact, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return media.Artifact{}, false
	}
	if !c.expired(e, c.now()) {
		return e.value.Clone(), true
	}
	c.mu.Lock()
	// Re-check: a Put may have replaced the entry since the read lock was dropped.
	if cur, ok := c.entries[key]; ok && c.expired(cur, c.now()) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return media.Artifact{}, false
}

// Put stores value under key, overwriting any previous entry.
func (c *Results) Put(key string, value media.Artifact) {
	e := entry{value: value.Clone(), storedAt: c.now()}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// EvictExpired removes every expired entry and returns how many were removed.
func (c *Results) EvictExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Results) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Results) expired(e entry, now time.Time) bool {
	return now.Sub(e.storedAt) > c.ttl
}
