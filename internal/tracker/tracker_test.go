package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vitrix/updates-center/internal/model"
)

func TestTracker(t *testing.T) {
	early := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tr := New([]model.ResponseRecord{
		{ID: "p2", EventID: "e1", RespondedAt: late},
		{ID: "p1", EventID: "e1", RespondedAt: early},
		{ID: "p3", EventID: "e2", RespondedAt: late},
		{ID: "p4", EventID: ""},
	})

	assert.Equal(t, 2, tr.Len())
	assert.True(t, tr.Responded("e1"))
	assert.False(t, tr.Responded("e3"))

	r, ok := tr.Get("e1")
	assert.True(t, ok)
	assert.Equal(t, "p1", r.ID, "earliest response wins")
}

func TestNilTrackerIsEmpty(t *testing.T) {
	var tr *Tracker
	assert.False(t, tr.Responded("e1"))
	assert.Equal(t, 0, tr.Len())
}
