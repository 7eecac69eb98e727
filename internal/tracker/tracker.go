// Package tracker answers "has the viewer already responded to this event".
package tracker

import "github.com/vitrix/updates-center/internal/model"

// Tracker is a lookup of response records keyed by event id. The zero
// value and a nil *Tracker are both empty.
type Tracker struct {
	byEvent map[string]model.ResponseRecord
}

// New indexes records by event id. When several records exist for one
// event the earliest response is kept.
func New(records []model.ResponseRecord) *Tracker {
	t := &Tracker{byEvent: make(map[string]model.ResponseRecord, len(records))}
	for _, r := range records {
		if r.EventID == "" {
			continue
		}
		prev, ok := t.byEvent[r.EventID]
		if ok && !r.RespondedAt.Before(prev.RespondedAt) {
			continue
		}
		t.byEvent[r.EventID] = r
	}
	return t
}

// Responded reports whether a response exists for eventID.
func (t *Tracker) Responded(eventID string) bool {
	_, ok := t.Get(eventID)
	return ok
}

// Get returns the response record for eventID.
func (t *Tracker) Get(eventID string) (model.ResponseRecord, bool) {
	if t == nil {
		return model.ResponseRecord{}, false
	}
	r, ok := t.byEvent[eventID]
	return r, ok
}

// Len returns the number of events with a response.
func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byEvent)
}
