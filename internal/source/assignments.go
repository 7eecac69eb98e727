package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
)

// WorkoutAssignments surfaces workouts assigned to the viewer that are not
// yet accepted.
type WorkoutAssignments struct {
	store store.Store
}

// NewWorkoutAssignments creates the workout assignment adapter.
func NewWorkoutAssignments(s store.Store) *WorkoutAssignments {
	return &WorkoutAssignments{store: s}
}

func (a *WorkoutAssignments) Source() string { return NameWorkoutAssignment }

func (a *WorkoutAssignments) RawID(w model.WorkoutAssignment) string { return w.ID }

func (a *WorkoutAssignments) Fetch(
	ctx context.Context,
	v model.Viewer,
) ([]model.WorkoutAssignment, error) {
	ws, err := store.ListInto[model.WorkoutAssignment](ctx, a.store, model.EntityWorkoutAssignment, store.Query{
		Filters: []store.Filter{store.EqFold("user_email", v.Email)},
		Sort:    "-created_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching workout assignments: %w", err)
	}
	return ws, nil
}

func (a *WorkoutAssignments) Relevant(w model.WorkoutAssignment, v model.Viewer, _ Env) bool {
	return v.Is(w.UserEmail) && !w.IsAccepted
}

func (a *WorkoutAssignments) ToNotification(w model.WorkoutAssignment, _ Env) model.Notification {
	var details []string
	if w.CoachName != "" {
		details = append(details, w.CoachName+" assigned you a new workout.")
	} else {
		details = append(details, "You have a new workout assignment.")
	}
	if notes := PlainText(w.Notes); notes != "" {
		details = append(details, notes)
	}
	return model.Notification{
		Kind:      model.KindWorkoutAssignment,
		Title:     "New workout: " + w.WorkoutName,
		Details:   strings.Join(details, "\n"),
		Timestamp: w.CreatedDate,
		Hint:      model.HintFor(model.KindWorkoutAssignment, false),
		Payload:   &w,
	}
}

// WeightReminders surfaces weigh-in reminders the viewer has not dismissed.
type WeightReminders struct {
	store store.Store
}

// NewWeightReminders creates the weight reminder adapter.
func NewWeightReminders(s store.Store) *WeightReminders {
	return &WeightReminders{store: s}
}

func (a *WeightReminders) Source() string { return NameWeightReminder }

func (a *WeightReminders) RawID(r model.WeightReminder) string { return r.ID }

func (a *WeightReminders) Fetch(
	ctx context.Context,
	v model.Viewer,
) ([]model.WeightReminder, error) {
	rs, err := store.ListInto[model.WeightReminder](ctx, a.store, model.EntityWeightReminder, store.Query{
		Filters: []store.Filter{store.EqFold("user_email", v.Email)},
		Sort:    "-created_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching weight reminders: %w", err)
	}
	return rs, nil
}

func (a *WeightReminders) Relevant(r model.WeightReminder, v model.Viewer, _ Env) bool {
	return v.Is(r.UserEmail) && !r.IsDismissed
}

func (a *WeightReminders) ToNotification(r model.WeightReminder, _ Env) model.Notification {
	details := PlainText(r.Message)
	if details == "" {
		details = "Your coach asked for an updated weight measurement."
	}
	return model.Notification{
		Kind:      model.KindWeightReminder,
		Title:     "Time for a weigh-in",
		Details:   details,
		Timestamp: r.CreatedDate,
		Hint:      model.HintFor(model.KindWeightReminder, false),
		Payload:   &r,
	}
}
