package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrix/updates-center/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	c := New(5*time.Minute, WithClock(clock.Now))

	e := NewEntry([]model.Notification{{ID: "message_1"}}, nil, clock.Now(), nil)
	c.Set("a@example.com", e)

	clock.Advance(4*time.Minute + 59*time.Second)
	got, ok := c.Get("a@example.com")
	require.True(t, ok)
	assert.Same(t, e, got)

	clock.Advance(time.Second)
	_, ok = c.Get("a@example.com")
	assert.False(t, ok, "entry at TTL age is a miss")

	clock.t = e.CreatedAt
	_, ok = c.Get("a@example.com")
	assert.False(t, ok, "expired entry was evicted on access")
}

func TestCacheAgeFollowsItsClockOnly(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	c := New(20*time.Millisecond, WithClock(clock.Now))

	e := NewEntry(nil, nil, clock.Now(), nil)
	c.Set("a@example.com", e)

	time.Sleep(40 * time.Millisecond)
	got, ok := c.Get("a@example.com")
	require.True(t, ok, "wall time passing does not expire the entry")
	assert.Same(t, e, got)

	c.Set("b@example.com", NewEntry(nil, nil, clock.Now().Add(-time.Second), nil))
	c.Prune()
	_, ok = c.items.Get("b@example.com")
	assert.False(t, ok, "expired entry pruned")
	_, ok = c.items.Get("a@example.com")
	assert.True(t, ok)
}

func TestCacheKeysAreIndependent(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()

	c.Set("a", NewEntry(nil, nil, now, nil))
	c.Set("b", NewEntry(nil, nil, now, nil))
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestEntryRemove(t *testing.T) {
	e := NewEntry([]model.Notification{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil, time.Now(), nil)
	snapshot := e.Feed()

	assert.True(t, e.Remove("b"))
	assert.False(t, e.Remove("b"))

	feed := e.Feed()
	require.Len(t, feed, 2)
	assert.Equal(t, "a", feed[0].ID)
	assert.Equal(t, "c", feed[1].ID)
	assert.Len(t, snapshot, 3, "earlier snapshots are unaffected")

	_, ok := e.Find("c")
	assert.True(t, ok)
}

func TestNewDefaultsTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, New(0).TTL())
}
