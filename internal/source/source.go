// Package source implements the adapters that feed the updates center.
//
// Each adapter fetches one kind of raw record from the entity store and
// owns that record's relevance rule and its mapping to a notification.
// Relevance is evaluated after every adapter has settled, because event
// reminders depend on the viewer's responses, which come from a separate
// adapter.
package source

import (
	"context"
	"time"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
	"github.com/vitrix/updates-center/internal/tracker"
)

// Source namespaces. A notification id is "<namespace>_<raw id>".
const (
	NameDirectMessage     = "message"
	NameBroadcastMessage  = "admin"
	NameGroupMessage      = "group"
	NameEventReminder     = "event"
	NameWorkoutAssignment = "workout"
	NameWeightReminder    = "weight"
	NameParticipation     = "participation"
)

// Env is the evaluation context shared by every relevance check and
// notification mapping of one aggregation run.
type Env struct {
	Now       time.Time
	Responses *tracker.Tracker

	// ReminderWindow is how long before an event its reminder is shown.
	ReminderWindow time.Duration
}

// Adapter is a typed source of raw records of type R.
type Adapter[R any] interface {
	// Source returns the namespace used in notification ids.
	Source() string

	// Fetch retrieves candidate records for the viewer.
	Fetch(ctx context.Context, v model.Viewer) ([]R, error)

	// RawID returns the record's identifier within its source.
	RawID(r R) string

	// Relevant decides whether the record currently belongs in the feed.
	Relevant(r R, v model.Viewer, env Env) bool

	// ToNotification maps a relevant record to its feed entry. The id is
	// assigned by the caller.
	ToNotification(r R, env Env) model.Notification
}

// Candidate is a fetched record awaiting its relevance decision.
type Candidate struct {
	ID string

	relevant func(Env) bool
	build    func(Env) model.Notification
}

// Relevant reports whether the candidate belongs in the feed under env.
func (c Candidate) Relevant(env Env) bool {
	return c.relevant(env)
}

// Notification builds the feed entry for the candidate.
func (c Candidate) Notification(env Env) model.Notification {
	n := c.build(env)
	n.ID = c.ID
	return n
}

// Runner is the type-erased form of an Adapter consumed by the aggregator.
type Runner interface {
	Source() string
	Run(ctx context.Context, v model.Viewer) ([]Candidate, error)
}

// ResponseFetcher loads the viewer's event responses.
type ResponseFetcher interface {
	Fetch(ctx context.Context, v model.Viewer) ([]model.ResponseRecord, error)
}

// Erase wraps a typed adapter as a Runner.
func Erase[R any](a Adapter[R]) Runner {
	return runner[R]{a: a}
}

type runner[R any] struct {
	a Adapter[R]
}

func (r runner[R]) Source() string {
	return r.a.Source()
}

func (r runner[R]) Run(ctx context.Context, v model.Viewer) ([]Candidate, error) {
	records, err := r.a.Fetch(ctx, v)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		rec := rec
		out = append(out, Candidate{
			ID: model.NotificationID(r.a.Source(), r.a.RawID(rec)),
			relevant: func(env Env) bool {
				return r.a.Relevant(rec, v, env)
			},
			build: func(env Env) model.Notification {
				return r.a.ToNotification(rec, env)
			},
		})
	}
	return out, nil
}

// Runners returns every notification-producing adapter in merge order.
func Runners(s store.Store, dismissals store.Dismissals) []Runner {
	return []Runner{
		Erase[model.DirectMessage](NewDirectMessages(s)),
		Erase[model.BroadcastMessage](NewBroadcastMessages(s)),
		Erase[groupMessage](NewGroupMessages(s, dismissals)),
		Erase[model.GroupEvent](NewEventReminders(s)),
		Erase[model.WorkoutAssignment](NewWorkoutAssignments(s)),
		Erase[model.WeightReminder](NewWeightReminders(s)),
	}
}
