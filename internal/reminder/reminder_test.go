package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vitrix/updates-center/internal/model"
)

func TestDeriveWindow(t *testing.T) {
	start := time.Date(2026, 6, 10, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"49h before", start.Add(-49 * time.Hour), false},
		{"exactly 48h before", start.Add(-48 * time.Hour), true},
		{"47h before", start.Add(-47 * time.Hour), true},
		{"1m before", start.Add(-time.Minute), true},
		{"at start", start, false},
		{"1m after", start.Add(time.Minute), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, responded := range []bool{false, true} {
				got := Derive(tc.now, start, DefaultWindow, responded)
				assert.Equal(t, tc.active, got.Active(), "responded=%v", responded)
			}
		})
	}
}

func TestDeriveResponseState(t *testing.T) {
	start := time.Date(2026, 6, 10, 18, 0, 0, 0, time.UTC)
	now := start.Add(-3 * time.Hour)

	assert.Equal(t, ActiveUnanswered, Derive(now, start, DefaultWindow, false))
	assert.Equal(t, ActiveAnswered, Derive(now, start, DefaultWindow, true))
	assert.Equal(t, ActiveUnanswered, Derive(now, start, 0, false), "zero window falls back to default")
	assert.Equal(t, Dormant, Derive(now, start, time.Hour, false), "custom window honored")
}

func TestCopy(t *testing.T) {
	start := time.Date(2026, 6, 10, 18, 0, 0, 0, time.UTC)
	ev := model.GroupEvent{ID: "e1", Title: "Park run", Location: "Riverside", EventDate: start}
	now := start.Add(-5 * time.Hour)

	title, details := Copy(ev, ActiveUnanswered, now)
	assert.Equal(t, "Upcoming event: Park run", title)
	assert.Contains(t, details, "from now at Riverside.")
	assert.Contains(t, details, "Let your coach know")

	title, details = Copy(ev, ActiveAnswered, now)
	assert.Equal(t, "You're registered for Park run", title)
	assert.Contains(t, details, "already responded")
}
