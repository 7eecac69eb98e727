// Package action applies viewer actions on feed notifications: the remote
// mutation for the notification's kind and its immediate effect on the
// displayed feed.
package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
)

// mutationTimeout bounds remote writes that outlive the triggering call.
const mutationTimeout = 30 * time.Second

// Navigation targets handed to screens outside the updates center.
const (
	NavWeightEntry = "weight-entry"
)

// EventResponseTarget is the response screen of an event.
func EventResponseTarget(eventID string) string {
	return "event-response/" + eventID
}

// WorkoutTarget is the detail screen of a workout assignment.
func WorkoutTarget(id string) string {
	return "workout/" + id
}

// Feed is the aggregation the dispatcher invalidates and reloads when an
// action changes what the feed should contain.
type Feed interface {
	Clear()
	Reload(ctx context.Context, email string) (*cache.Entry, error)
}

// Effect describes what an action did to the displayed feed.
type Effect struct {
	// Removed is set when the notification was dropped from the feed.
	Removed bool

	// Navigate is the screen the viewer is sent to, if any.
	Navigate string

	// Entry is the recomputed feed when the action reloaded it.
	Entry *cache.Entry
}

// RequiresExpanded reports whether acting on kind is only allowed while the
// notification is shown expanded.
func RequiresExpanded(kind model.Kind) bool {
	return kind == model.KindDirectMessage || kind == model.KindBroadcastMessage
}

type request struct {
	entry *cache.Entry
	n     model.Notification
}

type handlerFunc func(ctx context.Context, req request) (Effect, error)

// Dispatcher routes actions to the handler of the notification's kind.
type Dispatcher struct {
	store      store.Store
	dismissals store.Dismissals
	feed       Feed
	handlers   map[model.Kind]handlerFunc

	now func() time.Time
	log logrus.FieldLogger

	bg conc.WaitGroup
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the time source used for read receipts.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the logger for swallowed mutation failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a Dispatcher writing to s. dismissals holds the
// local overrides for group messages.
func NewDispatcher(
	s store.Store,
	dismissals store.Dismissals,
	feed Feed,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		store:      s,
		dismissals: dismissals,
		feed:       feed,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	d.handlers = map[model.Kind]handlerFunc{
		model.KindDirectMessage:     d.dismissDirect,
		model.KindBroadcastMessage:  d.readBroadcast,
		model.KindGroupMessage:      d.acknowledgeGroup,
		model.KindWeightReminder:    d.actOnWeight,
		model.KindEventReminder:     d.openEvent,
		model.KindWorkoutAssignment: d.openWorkout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Act performs the action for notification id of entry. expanded reports
// whether the notification is currently shown expanded.
func (d *Dispatcher) Act(
	ctx context.Context,
	entry *cache.Entry,
	id string,
	expanded bool,
) (Effect, error) {
	n, ok := entry.Find(id)
	if !ok {
		return Effect{}, fmt.Errorf("acting on %s: %w", id, ErrUnknownNotification)
	}
	if RequiresExpanded(n.Kind) && !expanded {
		return Effect{}, ErrCollapsed
	}

	h, ok := d.handlers[n.Kind]
	if !ok {
		return Effect{}, fmt.Errorf("no action for %s", n.Kind)
	}
	return h(ctx, request{entry: entry, n: n})
}

// Wait blocks until every background mutation has finished.
func (d *Dispatcher) Wait() {
	d.bg.Wait()
}

// background runs an optimistic mutation after the caller has moved on.
// Failures are logged; the viewer already saw the action succeed.
func (d *Dispatcher) background(ctx context.Context, n model.Notification, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	d.bg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, mutationTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.warn(&MutationError{Kind: n.Kind, ID: n.ID, Err: err})
		}
	})
}

func (d *Dispatcher) warn(err *MutationError) {
	d.log.WithFields(logrus.Fields{
		"kind":  err.Kind,
		"id":    err.ID,
		"error": err.Err,
	}).Warn("Action mutation failed")
}

// rawID returns the source record id of n.
func rawID(n model.Notification) string {
	if i := strings.IndexByte(n.ID, '_'); i >= 0 {
		return n.ID[i+1:]
	}
	return n.ID
}
