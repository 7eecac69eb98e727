package source

import (
	"context"
	"fmt"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/reminder"
	"github.com/vitrix/updates-center/internal/store"
)

// EventReminders derives reminders for events of the viewer's groups that
// start within the reminder window.
type EventReminders struct {
	store store.Store
}

// NewEventReminders creates the group event adapter.
func NewEventReminders(s store.Store) *EventReminders {
	return &EventReminders{store: s}
}

func (a *EventReminders) Source() string { return NameEventReminder }

func (a *EventReminders) RawID(ev model.GroupEvent) string { return ev.ID }

func (a *EventReminders) Fetch(
	ctx context.Context,
	_ model.Viewer,
) ([]model.GroupEvent, error) {
	events, err := store.ListInto[model.GroupEvent](ctx, a.store, model.EntityGroupEvent, store.Query{
		Sort: "event_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching group events: %w", err)
	}
	return events, nil
}

func (a *EventReminders) Relevant(ev model.GroupEvent, v model.Viewer, env Env) bool {
	if !v.InAnyGroup(ev.GroupNames) {
		return false
	}
	return a.state(ev, env).Active()
}

func (a *EventReminders) ToNotification(ev model.GroupEvent, env Env) model.Notification {
	state := a.state(ev, env)
	responded := state == reminder.ActiveAnswered
	title, details := reminder.Copy(ev, state, env.Now)
	return model.Notification{
		Kind:      model.KindEventReminder,
		Title:     title,
		Details:   details,
		Timestamp: ev.EventDate,
		Hint:      model.HintFor(model.KindEventReminder, responded),
		Responded: responded,
		Payload:   &ev,
	}
}

func (a *EventReminders) state(ev model.GroupEvent, env Env) reminder.State {
	return reminder.Derive(env.Now, ev.EventDate, env.ReminderWindow, env.Responses.Responded(ev.ID))
}

// Participations loads the viewer's event responses. It never produces
// notifications; its records feed the response tracker.
type Participations struct {
	store store.Store
}

// NewParticipations creates the event participation adapter.
func NewParticipations(s store.Store) *Participations {
	return &Participations{store: s}
}

func (a *Participations) Fetch(
	ctx context.Context,
	v model.Viewer,
) ([]model.ResponseRecord, error) {
	recs, err := store.ListInto[model.ResponseRecord](ctx, a.store, model.EntityEventParticipation, store.Query{
		Filters: []store.Filter{store.EqFold("user_email", v.Email)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching event participations: %w", err)
	}
	return recs, nil
}
