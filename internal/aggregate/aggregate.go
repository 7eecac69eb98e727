// Package aggregate builds a viewer's updates feed from every source.
//
// A run fetches all sources concurrently and waits for each to settle on
// its own: a failing or slow source contributes nothing while the rest of
// the feed is still produced. The merged feed is deduplicated by
// notification id, ordered newest first and cached per viewer.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/reminder"
	"github.com/vitrix/updates-center/internal/source"
	"github.com/vitrix/updates-center/internal/tracker"
)

// DefaultFetchTimeout bounds a single source fetch.
const DefaultFetchTimeout = 20 * time.Second

// ViewerResolver maps the configured viewer email to its identity.
type ViewerResolver interface {
	Resolve(ctx context.Context, email string) (model.Viewer, error)
}

// Aggregator runs the sources for a viewer and caches the merged feed.
type Aggregator struct {
	runners   []source.Runner
	responses source.ResponseFetcher
	viewers   ViewerResolver
	cache     *cache.Cache

	now          func() time.Time
	fetchTimeout time.Duration
	window       time.Duration
	log          logrus.FieldLogger

	mu   sync.Mutex
	gens map[string]uint64
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the time source used for reminder windows and cache
// entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithFetchTimeout sets the per-source deadline. Zero disables it.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.fetchTimeout = d }
}

// WithReminderWindow sets how long before an event its reminder shows.
func WithReminderWindow(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.window = d
		}
	}
}

// WithLogger sets the logger for source failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.log = l }
}

// New creates an Aggregator. responses may be nil, in which case no event
// is ever considered answered.
func New(
	runners []source.Runner,
	responses source.ResponseFetcher,
	viewers ViewerResolver,
	c *cache.Cache,
	opts ...Option,
) *Aggregator {
	a := &Aggregator{
		runners:      runners,
		responses:    responses,
		viewers:      viewers,
		cache:        c,
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
		window:       reminder.DefaultWindow,
		log:          logrus.StandardLogger(),
		gens:         make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Feed returns the viewer's cached feed, aggregating when there is no
// live entry.
func (a *Aggregator) Feed(ctx context.Context, email string) (*cache.Entry, error) {
	if e, ok := a.cache.Get(Key(email)); ok {
		return e, nil
	}
	return a.run(ctx, email)
}

// Reload aggregates unconditionally and replaces the cached entry.
func (a *Aggregator) Reload(ctx context.Context, email string) (*cache.Entry, error) {
	return a.run(ctx, email)
}

// Clear drops every cached feed.
func (a *Aggregator) Clear() {
	a.cache.Clear()
}

// Cached returns the live cache entry for email without aggregating.
func (a *Aggregator) Cached(email string) (*cache.Entry, bool) {
	return a.cache.Get(Key(email))
}

// Key is the cache key for a viewer email.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Aggregator) run(ctx context.Context, email string) (*cache.Entry, error) {
	key := Key(email)
	gen := a.begin(key)
	log := a.log.WithField("viewer", key)

	v, err := a.viewers.Resolve(ctx, email)
	if err != nil {
		log.WithError(err).Error("Resolving viewer failed")
		return nil, &AggregationError{Err: err}
	}

	outcomes, responses, failures := a.settle(ctx, v)
	if err := ctx.Err(); err != nil {
		return nil, &AggregationError{Err: err}
	}

	for _, f := range failures {
		log.WithFields(logrus.Fields{
			"source": f.Source,
			"error":  f.Err,
		}).Warn("Source fetch failed")
	}

	now := a.now()
	env := source.Env{
		Now:            now,
		Responses:      responses,
		ReminderWindow: a.window,
	}
	feed := merge(outcomes, env)

	failed := make([]string, len(failures))
	for i, f := range failures {
		failed[i] = f.Source
	}

	entry := cache.NewEntry(feed, responses, now, failed)
	entry.Viewer = v

	if a.current(key, gen) {
		a.cache.Prune()
		a.cache.Set(key, entry)
	} else {
		log.Debug("Discarding superseded aggregation")
	}

	log.WithFields(logrus.Fields{
		"items":  len(feed),
		"failed": len(failed),
	}).Debug("Aggregated updates")

	return entry, nil
}

// begin registers a new run for key and returns its generation.
func (a *Aggregator) begin(key string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gens[key]++
	return a.gens[key]
}

// current reports whether gen is still the latest run started for key.
func (a *Aggregator) current(key string, gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gens[key] == gen
}

type outcome struct {
	source string
	cands  []source.Candidate
	err    error
}

// settle fetches every source concurrently and waits for all of them.
func (a *Aggregator) settle(
	ctx context.Context,
	v model.Viewer,
) ([]outcome, *tracker.Tracker, []*SourceFetchError) {
	outcomes := make([]outcome, len(a.runners))

	var (
		records     []model.ResponseRecord
		responseErr error
	)

	var wg conc.WaitGroup
	for i, r := range a.runners {
		i, r := i, r
		wg.Go(func() {
			cands, err := within(ctx, a.fetchTimeout, func(ctx context.Context) ([]source.Candidate, error) {
				return r.Run(ctx, v)
			})
			outcomes[i] = outcome{source: r.Source(), cands: cands, err: err}
		})
	}
	if a.responses != nil {
		wg.Go(func() {
			records, responseErr = within(ctx, a.fetchTimeout, func(ctx context.Context) ([]model.ResponseRecord, error) {
				return a.responses.Fetch(ctx, v)
			})
		})
	}
	wg.Wait()

	var failures []*SourceFetchError
	for _, o := range outcomes {
		if o.err != nil {
			failures = append(failures, &SourceFetchError{Source: o.source, Err: o.err})
		}
	}
	if responseErr != nil {
		records = nil
		failures = append(failures, &SourceFetchError{Source: source.NameParticipation, Err: responseErr})
	}

	return outcomes, tracker.New(records), failures
}

// within runs fn under timeout and returns as soon as either fn finishes
// or the deadline passes, even if fn ignores its context. A panic in fn
// is returned as an error.
func within[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		var res result
		var pc panics.Catcher
		pc.Try(func() {
			res.val, res.err = fn(ctx)
		})
		if r := pc.Recovered(); r != nil {
			res = result{err: r.AsError()}
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("fetch abandoned: %w", ctx.Err())
	}
}

// merge keeps the relevant candidates of every successful source, skipping
// ids already seen, and returns them in feed order.
func merge(outcomes []outcome, env source.Env) []model.Notification {
	seen := make(map[string]bool)
	feed := make([]model.Notification, 0)

	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		for _, c := range o.cands {
			if seen[c.ID] || !c.Relevant(env) {
				continue
			}
			seen[c.ID] = true
			feed = append(feed, c.Notification(env))
		}
	}

	Sort(feed)
	return feed
}

// Sort orders a feed newest first. Equal timestamps fall back to kind
// priority, then id.
func Sort(feed []model.Notification) {
	sort.SliceStable(feed, func(i, j int) bool {
		a, b := feed[i], feed[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if pa, pb := a.Kind.Priority(), b.Kind.Priority(); pa != pb {
			return pa < pb
		}
		return a.ID < b.ID
	})
}
