package updates

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrix/updates-center/internal/action"
	"github.com/vitrix/updates-center/internal/aggregate"
	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/keys"
	"github.com/vitrix/updates-center/internal/model"
)

var now = time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

type actCall struct {
	id       string
	expanded bool
}

type fakeCenter struct {
	feed    []model.Notification
	failed  []string
	loadErr error
	effect  action.Effect

	acts    []actCall
	retries int
}

func (f *fakeCenter) Load(context.Context) (*cache.Entry, error)    { return nil, f.loadErr }
func (f *fakeCenter) Refresh(context.Context) (*cache.Entry, error) { return nil, f.loadErr }

func (f *fakeCenter) Retry(context.Context) (*cache.Entry, error) {
	f.retries++
	return nil, f.loadErr
}

func (f *fakeCenter) Act(_ context.Context, id string, expanded bool) (action.Effect, error) {
	f.acts = append(f.acts, actCall{id, expanded})
	if f.effect.Removed {
		for i, n := range f.feed {
			if n.ID == id {
				f.feed = append(f.feed[:i:i], f.feed[i+1:]...)
				break
			}
		}
	}
	return f.effect, nil
}

func (f *fakeCenter) Feed() []model.Notification { return f.feed }
func (f *fakeCenter) FailedSources() []string    { return f.failed }
func (f *fakeCenter) Viewer() model.Viewer       { return model.Viewer{Name: "Tess"} }

func notification(id string, kind model.Kind, details string) model.Notification {
	return model.Notification{
		ID:        id,
		Kind:      kind,
		Title:     "Title " + id,
		Details:   details,
		Timestamp: now.Add(-time.Hour),
		Hint:      model.HintFor(kind, false),
	}
}

func press(t *testing.T, m Model, keyName string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch keyName {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keyName)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func loaded(t *testing.T, c *fakeCenter) Model {
	t.Helper()
	m := New(c, nil, keys.DefaultKeyMap(), 2)
	m.now = func() time.Time { return now }
	next, _ := m.Update(loadedMsg{err: c.loadErr})
	return next.(Model)
}

func TestActRequiresExpandedMessage(t *testing.T) {
	c := &fakeCenter{
		feed:   []model.Notification{notification("message_1", model.KindDirectMessage, "hello")},
		effect: action.Effect{Removed: true},
	}
	m := loaded(t, c)

	m, cmd := press(t, m, "d")
	assert.Nil(t, cmd)
	assert.Empty(t, c.acts)
	assert.Contains(t, m.View(), "Expand the message")

	m, _ = press(t, m, "enter")
	m, cmd = press(t, m, "d")
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, []actCall{{"message_1", true}}, c.acts)
	assert.Empty(t, m.items)
	assert.Contains(t, m.View(), "all caught up")
}

func TestNavigationActionsDoNotNeedExpansion(t *testing.T) {
	c := &fakeCenter{
		feed:   []model.Notification{notification("event_e1", model.KindEventReminder, "Starts soon.")},
		effect: action.Effect{Navigate: action.EventResponseTarget("e1")},
	}
	m := loaded(t, c)

	m, cmd := press(t, m, "d")
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, []actCall{{"event_e1", false}}, c.acts)
	assert.Len(t, m.items, 1)
	assert.Contains(t, m.View(), "Opening event-response/e1")
}

func TestCursorMovement(t *testing.T) {
	c := &fakeCenter{feed: []model.Notification{
		notification("weight_1", model.KindWeightReminder, ""),
		notification("workout_1", model.KindWorkoutAssignment, ""),
	}}
	m := loaded(t, c)

	m, _ = press(t, m, "down")
	m, _ = press(t, m, "down")
	assert.Equal(t, 1, m.cursor)

	m, _ = press(t, m, "k")
	assert.Equal(t, 0, m.cursor)
}

func TestCollapsedDetailsAreClipped(t *testing.T) {
	long := strings.Join([]string{"one", "two", "three", "four"}, "\n")
	c := &fakeCenter{feed: []model.Notification{notification("admin_1", model.KindBroadcastMessage, long)}}
	m := loaded(t, c)

	view := m.View()
	assert.Contains(t, view, "two")
	assert.NotContains(t, view, "four")
	assert.Contains(t, view, "read more")

	m, _ = press(t, m, "enter")
	assert.Contains(t, m.View(), "four")
}

func TestAggregationErrorShowsRetry(t *testing.T) {
	c := &fakeCenter{loadErr: &aggregate.AggregationError{Err: errors.New("unknown viewer")}}
	m := loaded(t, c)

	assert.Contains(t, m.View(), "Press R to try again")

	c.loadErr = nil
	c.feed = []model.Notification{notification("message_1", model.KindDirectMessage, "hi")}

	m, cmd := press(t, m, "R")
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, sub := range batch {
		if sub == nil {
			continue
		}
		if msg, ok := sub().(loadedMsg); ok {
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}

	assert.Equal(t, 1, c.retries)
	assert.Nil(t, m.err)
	assert.False(t, m.loading)
	assert.Len(t, m.items, 1)
}

func TestRetryIgnoredWithoutError(t *testing.T) {
	c := &fakeCenter{}
	m := loaded(t, c)

	_, cmd := press(t, m, "R")
	assert.Nil(t, cmd)
	assert.Zero(t, c.retries)
}

func TestFailedSourcesInStatusBar(t *testing.T) {
	c := &fakeCenter{
		feed:   []model.Notification{notification("weight_1", model.KindWeightReminder, "")},
		failed: []string{"admin", "event"},
	}
	m := loaded(t, c)
	assert.Contains(t, m.View(), "2 sources unavailable (admin, event)")
}

func TestClip(t *testing.T) {
	text, truncated := clip("a\nb\nc", 40, 2, false)
	assert.True(t, truncated)
	assert.Equal(t, 2, len(strings.Split(text, "\n")))

	text, truncated = clip("a\nb\nc", 40, 2, true)
	assert.False(t, truncated)
	assert.Equal(t, 3, len(strings.Split(text, "\n")))

	text, truncated = clip("", 40, 2, false)
	assert.False(t, truncated)
	assert.Empty(t, text)
}
