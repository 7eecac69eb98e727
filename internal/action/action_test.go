package action

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrix/updates-center/internal/aggregate"
	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/source"
	"github.com/vitrix/updates-center/internal/store"
	"github.com/vitrix/updates-center/tests/testutil"
)

const viewerEmail = "trainee@example.com"

var now = time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

// flakyStore fails every Update of the listed entities.
type flakyStore struct {
	store.Store
	failing map[string]bool
}

func (f *flakyStore) Update(ctx context.Context, entity, id string, fields map[string]any) error {
	if f.failing[entity] {
		return errors.New("entity api unavailable")
	}
	return f.Store.Update(ctx, entity, id, fields)
}

type fixture struct {
	local *store.SQLiteStore
	agg   *aggregate.Aggregator
	d     *Dispatcher
}

func newFixture(t *testing.T, failing ...string) *fixture {
	t.Helper()

	local := testutil.NewTestStore(t)
	s := &flakyStore{Store: local, failing: map[string]bool{}}
	for _, e := range failing {
		s.failing[e] = true
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clock := func() time.Time { return now }

	agg := aggregate.New(
		source.Runners(s, local),
		source.NewParticipations(s),
		source.NewUsers(s),
		cache.New(0, cache.WithClock(clock)),
		aggregate.WithClock(clock),
		aggregate.WithLogger(logger),
	)
	d := NewDispatcher(s, local, agg, WithClock(clock), WithLogger(logger))

	testutil.Seed(t, local, model.EntityUser,
		model.User{ID: "u1", Email: viewerEmail, GroupNames: []string{"A"}})

	return &fixture{local: local, agg: agg, d: d}
}

func (f *fixture) feed(t *testing.T) *cache.Entry {
	t.Helper()
	e, err := f.agg.Feed(context.Background(), viewerEmail)
	require.NoError(t, err)
	return e
}

func feedIDs(e *cache.Entry) []string {
	var out []string
	for _, n := range e.Feed() {
		out = append(out, n.ID)
	}
	return out
}

func TestCollapsedMessagesCannotBeAcknowledged(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.local, model.EntityMessage,
		model.DirectMessage{ID: "m1", ReceiverEmail: viewerEmail, CreatedDate: now})
	testutil.Seed(t, f.local, model.EntityAdminMessage,
		model.BroadcastMessage{ID: "b1", TargetType: model.TargetAll, CreatedDate: now})

	e := f.feed(t)
	for _, id := range []string{"message_m1", "admin_b1"} {
		_, err := f.d.Act(context.Background(), e, id, false)
		assert.ErrorIs(t, err, ErrCollapsed, id)
	}
	assert.Equal(t, 2, e.Len())

	assert.True(t, RequiresExpanded(model.KindDirectMessage))
	assert.True(t, RequiresExpanded(model.KindBroadcastMessage))
	assert.False(t, RequiresExpanded(model.KindGroupMessage))
	assert.False(t, RequiresExpanded(model.KindWeightReminder))
}

func TestUnknownNotification(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Act(context.Background(), f.feed(t), "message_missing", true)
	assert.ErrorIs(t, err, ErrUnknownNotification)
}

func TestDirectMessageDismissal(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.local, model.EntityMessage,
		model.DirectMessage{ID: "m1", ReceiverEmail: viewerEmail, CreatedDate: now})

	e := f.feed(t)
	eff, err := f.d.Act(context.Background(), e, "message_m1", true)
	require.NoError(t, err)
	assert.True(t, eff.Removed)
	assert.Empty(t, feedIDs(e), "removed before the write lands")

	f.d.Wait()
	msgs, err := store.ListInto[model.DirectMessage](context.Background(), f.local, model.EntityMessage, store.Query{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)
}

func TestOptimisticFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, model.EntityMessage)
	testutil.Seed(t, f.local, model.EntityMessage,
		model.DirectMessage{ID: "m1", ReceiverEmail: viewerEmail, CreatedDate: now})

	e := f.feed(t)
	eff, err := f.d.Act(context.Background(), e, "message_m1", true)
	require.NoError(t, err)
	assert.True(t, eff.Removed)
	f.d.Wait()

	// A reload is the source of truth and shows the message again.
	e, err = f.agg.Reload(context.Background(), viewerEmail)
	require.NoError(t, err)
	assert.Equal(t, []string{"message_m1"}, feedIDs(e))
}

func TestBroadcastReadKeepsOtherReceipts(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.local, model.EntityAdminMessage, model.BroadcastMessage{
		ID:         "b1",
		TargetType: model.TargetAll,
		ReadReceipts: model.ReadReceipts{
			{ViewerID: "other@example.com", IsRead: true, ReadAt: now.Add(-time.Hour)},
		},
		CreatedDate: now,
	})

	e := f.feed(t)
	eff, err := f.d.Act(context.Background(), e, "admin_b1", true)
	require.NoError(t, err)
	assert.True(t, eff.Removed)
	f.d.Wait()

	msgs, err := store.ListInto[model.BroadcastMessage](context.Background(), f.local, model.EntityAdminMessage, store.Query{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].ReadReceipts, 2)
	assert.True(t, msgs[0].ReadReceipts.ReadBy("other@example.com"))
	assert.True(t, msgs[0].ReadReceipts.ReadBy(viewerEmail))
}

func TestGroupDismissalIsDurable(t *testing.T) {
	cases := []struct {
		name    string
		failing []string
	}{
		{name: "receipt written"},
		{name: "receipt write failed", failing: []string{model.EntityGroupMessage}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.failing...)
			testutil.Seed(t, f.local, model.EntityGroupMessage,
				model.GroupMessage{ID: "g1", GroupName: "A", Title: "Hydrate", CreatedDate: now},
				model.GroupMessage{ID: "g2", GroupName: "A", Title: "Stretch", CreatedDate: now.Add(-time.Hour)},
			)
			ctx := context.Background()

			e := f.feed(t)
			require.Equal(t, []string{"group_g1", "group_g2"}, feedIDs(e))

			eff, err := f.d.Act(ctx, e, "group_g1", false)
			require.NoError(t, err)
			assert.True(t, eff.Removed)
			require.NotNil(t, eff.Entry)
			assert.Equal(t, []string{"group_g2"}, feedIDs(eff.Entry))

			reloaded, err := f.agg.Reload(ctx, viewerEmail)
			require.NoError(t, err)
			assert.Equal(t, []string{"group_g2"}, feedIDs(reloaded))

			dismissed, err := f.local.Dismissed(ctx, viewerEmail)
			require.NoError(t, err)
			assert.True(t, dismissed["group_g1"])
		})
	}
}

func TestWeightReminderAction(t *testing.T) {
	t.Run("dismissed", func(t *testing.T) {
		f := newFixture(t)
		testutil.Seed(t, f.local, model.EntityWeightReminder,
			model.WeightReminder{ID: "r1", UserEmail: viewerEmail, CreatedDate: now})

		e := f.feed(t)
		eff, err := f.d.Act(context.Background(), e, "weight_r1", false)
		require.NoError(t, err)
		assert.True(t, eff.Removed)
		assert.Equal(t, NavWeightEntry, eff.Navigate)
		assert.Nil(t, eff.Entry)
		assert.Empty(t, feedIDs(e))

		reloaded, err := f.agg.Reload(context.Background(), viewerEmail)
		require.NoError(t, err)
		assert.Empty(t, feedIDs(reloaded))
	})

	t.Run("write failure reloads", func(t *testing.T) {
		f := newFixture(t, model.EntityWeightReminder)
		testutil.Seed(t, f.local, model.EntityWeightReminder,
			model.WeightReminder{ID: "r1", UserEmail: viewerEmail, CreatedDate: now})

		e := f.feed(t)
		eff, err := f.d.Act(context.Background(), e, "weight_r1", false)
		require.NoError(t, err)
		assert.Equal(t, NavWeightEntry, eff.Navigate)
		require.NotNil(t, eff.Entry)
		assert.Equal(t, []string{"weight_r1"}, feedIDs(eff.Entry))
	})
}

func TestNavigationOnlyActions(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.local, model.EntityGroupEvent,
		model.GroupEvent{ID: "e1", Title: "Park run", GroupNames: []string{"A"}, EventDate: now.Add(2 * time.Hour)})
	testutil.Seed(t, f.local, model.EntityWorkoutAssignment,
		model.WorkoutAssignment{ID: "w1", UserEmail: viewerEmail, WorkoutName: "Legs", CreatedDate: now})

	e := f.feed(t)

	eff, err := f.d.Act(context.Background(), e, "event_e1", false)
	require.NoError(t, err)
	assert.Equal(t, "event-response/e1", eff.Navigate)
	assert.False(t, eff.Removed)

	eff, err = f.d.Act(context.Background(), e, "workout_w1", false)
	require.NoError(t, err)
	assert.Equal(t, "workout/w1", eff.Navigate)
	assert.False(t, eff.Removed)

	assert.Equal(t, 2, e.Len())
}
