// Package reminder derives the visibility and copy of event reminders.
//
// Reminder state is never stored. It is recomputed on every aggregation
// from the current time, the event start and whether the viewer already
// responded, so it cannot drift from the underlying records.
package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vitrix/updates-center/internal/model"
)

// DefaultWindow is how long before an event its reminder becomes visible.
const DefaultWindow = 48 * time.Hour

// State is the derived reminder state of a single event.
type State int

const (
	// Dormant reminders are not shown: the event is outside the window or
	// has already started.
	Dormant State = iota
	ActiveUnanswered
	ActiveAnswered
)

func (s State) String() string {
	switch s {
	case ActiveUnanswered:
		return "active-unanswered"
	case ActiveAnswered:
		return "active-answered"
	}
	return "dormant"
}

// Active reports whether the reminder is shown in the feed.
func (s State) Active() bool {
	return s != Dormant
}

// Derive computes the reminder state. The reminder is active for
// start-window <= now < start. A non-positive window uses DefaultWindow.
func Derive(now, start time.Time, window time.Duration, responded bool) State {
	if window <= 0 {
		window = DefaultWindow
	}
	if now.Before(start.Add(-window)) || !now.Before(start) {
		return Dormant
	}
	if responded {
		return ActiveAnswered
	}
	return ActiveUnanswered
}

// Copy returns the title and details shown for an active reminder.
func Copy(ev model.GroupEvent, state State, now time.Time) (title, details string) {
	when := humanize.RelTime(ev.EventDate, now, "ago", "from now")

	var parts []string
	parts = append(parts, "Starts "+when)
	if ev.Location != "" {
		parts = append(parts, "at "+ev.Location)
	}
	starts := strings.Join(parts, " ") + "."

	switch state {
	case ActiveAnswered:
		return fmt.Sprintf("You're registered for %s", ev.Title),
			starts + " You already responded to this event."
	default:
		return fmt.Sprintf("Upcoming event: %s", ev.Title),
			starts + " Let your coach know whether you're coming."
	}
}
