// Package cache holds the last computed updates feed per viewer for a
// short time, bounding how often the sources are queried.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/tracker"
)

// DefaultTTL is the lifetime of a cached feed.
const DefaultTTL = 5 * time.Minute

// Entry is a computed feed together with the response snapshot it was
// built from. The feed may be patched in place by optimistic actions.
type Entry struct {
	mu   sync.RWMutex
	feed []model.Notification

	// Viewer is the resolved identity the feed was computed for.
	Viewer model.Viewer

	Responses *tracker.Tracker
	CreatedAt time.Time

	// FailedSources lists the sources that contributed nothing because
	// their fetch failed.
	FailedSources []string
}

// NewEntry creates an entry for feed.
func NewEntry(
	feed []model.Notification,
	responses *tracker.Tracker,
	createdAt time.Time,
	failed []string,
) *Entry {
	return &Entry{
		feed:          feed,
		Responses:     responses,
		CreatedAt:     createdAt,
		FailedSources: failed,
	}
}

// Feed returns a copy of the ordered notifications.
func (e *Entry) Feed() []model.Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Notification, len(e.feed))
	copy(out, e.feed)
	return out
}

// Len returns the number of notifications.
func (e *Entry) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.feed)
}

// Find returns the notification with id.
func (e *Entry) Find(id string) (model.Notification, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, n := range e.feed {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// Remove drops the notification with id, preserving the order of the
// rest. It reports whether anything was removed.
func (e *Entry) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, n := range e.feed {
		if n.ID != id {
			continue
		}
		out := make([]model.Notification, 0, len(e.feed)-1)
		out = append(out, e.feed[:i]...)
		e.feed = append(out, e.feed[i+1:]...)
		return true
	}
	return false
}

// Cache is a process-local, time-expiring store of feed entries keyed by
// viewer. Entry age is judged only by the cache clock: expired entries are
// treated as misses and removed on access, or by Prune.
type Cache struct {
	items *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces the time source used to judge entry age.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache whose entries live for ttl. A non-positive ttl
// uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		items: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the live entry for key. An entry at least TTL old is
// removed and reported as a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*Entry)
	if c.now().Sub(e.CreatedAt) >= c.ttl {
		c.items.Delete(key)
		return nil, false
	}
	return e, true
}

// Set stores e under key.
func (c *Cache) Set(key string, e *Entry) {
	c.items.Set(key, e, gocache.NoExpiration)
}

// Prune removes every expired entry.
func (c *Cache) Prune() {
	now := c.now()
	for key, item := range c.items.Items() {
		if e, ok := item.Object.(*Entry); ok && now.Sub(e.CreatedAt) >= c.ttl {
			c.items.Delete(key)
		}
	}
}

// Delete drops the entry for key.
func (c *Cache) Delete(key string) {
	c.items.Delete(key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.items.Flush()
}
