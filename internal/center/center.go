// Package center is the per-session facade of the updates center. It holds
// the feed currently shown to one viewer and routes loads, retries and
// actions to the aggregator and action dispatcher.
package center

import (
	"context"
	"sync"

	"github.com/vitrix/updates-center/internal/action"
	"github.com/vitrix/updates-center/internal/aggregate"
	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/model"
)

// Center is the updates center of a single viewer session.
type Center struct {
	agg   *aggregate.Aggregator
	d     *action.Dispatcher
	email string

	mu    sync.Mutex
	seq   uint64
	entry *cache.Entry
}

// New creates a Center for the viewer identified by email.
func New(agg *aggregate.Aggregator, d *action.Dispatcher, email string) *Center {
	return &Center{agg: agg, d: d, email: email}
}

// Load shows the cached feed, aggregating when it has expired.
func (c *Center) Load(ctx context.Context) (*cache.Entry, error) {
	seq := c.next()
	e, err := c.agg.Feed(ctx, c.email)
	return c.settle(seq, e, err)
}

// Refresh re-aggregates regardless of the cache.
func (c *Center) Refresh(ctx context.Context) (*cache.Entry, error) {
	seq := c.next()
	e, err := c.agg.Reload(ctx, c.email)
	return c.settle(seq, e, err)
}

// Retry clears the cache and re-aggregates. It is the recovery path from
// an aggregation error.
func (c *Center) Retry(ctx context.Context) (*cache.Entry, error) {
	c.agg.Clear()
	return c.Refresh(ctx)
}

// Act performs the action of notification id on the shown feed.
func (c *Center) Act(ctx context.Context, id string, expanded bool) (action.Effect, error) {
	c.mu.Lock()
	e := c.entry
	c.mu.Unlock()

	if e == nil {
		return action.Effect{}, action.ErrUnknownNotification
	}

	// Only a reloaded feed supersedes loads in flight. Optimistic actions
	// patch e in place, which a concurrent load result already reflects.
	eff, err := c.d.Act(ctx, e, id, expanded)
	if eff.Entry != nil {
		c.settle(c.next(), eff.Entry, nil)
	}
	return eff, err
}

// Feed returns the notifications currently shown, newest first.
func (c *Center) Feed() []model.Notification {
	if e := c.current(); e != nil {
		return e.Feed()
	}
	return nil
}

// Unread returns the number of notifications shown.
func (c *Center) Unread() int {
	if e := c.current(); e != nil {
		return e.Len()
	}
	return 0
}

// FailedSources lists the sources missing from the shown feed.
func (c *Center) FailedSources() []string {
	if e := c.current(); e != nil {
		return e.FailedSources
	}
	return nil
}

// Viewer returns the identity of the shown feed.
func (c *Center) Viewer() model.Viewer {
	if e := c.current(); e != nil {
		return e.Viewer
	}
	return model.Viewer{Email: c.email}
}

// Close waits for pending background mutations.
func (c *Center) Close() {
	c.d.Wait()
}

func (c *Center) current() *cache.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

func (c *Center) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// settle shows e unless a later load has started since seq.
func (c *Center) settle(seq uint64, e *cache.Entry, err error) (*cache.Entry, error) {
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.seq {
		c.entry = e
	}
	return e, nil
}
