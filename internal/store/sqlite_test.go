package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
	"github.com/vitrix/updates-center/tests/testutil"
)

func TestSQLiteStoreListFilters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	testutil.Seed(t, s, model.EntityMessage,
		model.DirectMessage{ID: "m1", ReceiverEmail: "a@example.com", CreatedDate: base},
		model.DirectMessage{ID: "m2", ReceiverEmail: "a@example.com", IsRead: true, CreatedDate: base.Add(time.Hour)},
		model.DirectMessage{ID: "m3", ReceiverEmail: "b@example.com", CreatedDate: base.Add(2 * time.Hour)},
	)

	t.Run("equality", func(t *testing.T) {
		msgs, err := store.ListInto[model.DirectMessage](ctx, s, model.EntityMessage, store.Query{
			Filters: []store.Filter{store.Eq("receiver_email", "a@example.com")},
			Sort:    "-created_date",
		})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m2", msgs[0].ID)
		assert.Equal(t, "m1", msgs[1].ID)
	})

	t.Run("boolean equality", func(t *testing.T) {
		msgs, err := store.ListInto[model.DirectMessage](ctx, s, model.EntityMessage, store.Query{
			Filters: []store.Filter{store.Eq("is_read", false)},
		})
		require.NoError(t, err)
		assert.Len(t, msgs, 2)
	})

	t.Run("case-insensitive equality", func(t *testing.T) {
		msgs, err := store.ListInto[model.DirectMessage](ctx, s, model.EntityMessage, store.Query{
			Filters: []store.Filter{store.EqFold("receiver_email", "A@Example.COM")},
		})
		require.NoError(t, err)
		assert.Len(t, msgs, 2)
	})

	t.Run("fold needs a string", func(t *testing.T) {
		_, err := s.List(ctx, model.EntityMessage, store.Query{
			Filters: []store.Filter{{Field: "receiver_email", Op: store.OpFold, Values: []any{1}}},
		})
		assert.Error(t, err)
	})

	t.Run("set membership", func(t *testing.T) {
		msgs, err := store.ListInto[model.DirectMessage](ctx, s, model.EntityMessage, store.Query{
			Filters: []store.Filter{store.In("id", "m1", "m3", "missing")},
			Sort:    "created_date",
		})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m1", msgs[0].ID)
		assert.Equal(t, "m3", msgs[1].ID)
	})

	t.Run("empty set matches nothing", func(t *testing.T) {
		raw, err := s.List(ctx, model.EntityMessage, store.Query{
			Filters: []store.Filter{store.In("id")},
		})
		require.NoError(t, err)
		assert.Empty(t, raw)
	})

	t.Run("limit", func(t *testing.T) {
		raw, err := s.List(ctx, model.EntityMessage, store.Query{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, raw, 1)
	})

	t.Run("rejects unsafe field names", func(t *testing.T) {
		_, err := s.List(ctx, model.EntityMessage, store.Query{
			Filters: []store.Filter{store.Eq("id') OR 1=1 --", "x")},
		})
		assert.Error(t, err)
	})
}

func TestSQLiteStoreUpdateMergesFields(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	testutil.Seed(t, s, model.EntityWeightReminder, model.WeightReminder{
		ID:          "w1",
		UserEmail:   "a@example.com",
		Message:     "Time to weigh in",
		CreatedDate: time.Now().UTC(),
	})

	require.NoError(t, s.Update(ctx, model.EntityWeightReminder, "w1", map[string]any{
		"is_dismissed": true,
	}))

	got, err := store.ListInto[model.WeightReminder](ctx, s, model.EntityWeightReminder, store.Query{
		Filters: []store.Filter{store.Eq("id", "w1")},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsDismissed)
	assert.Equal(t, "Time to weigh in", got[0].Message, "untouched fields survive")

	err = s.Update(ctx, model.EntityWeightReminder, "nope", map[string]any{"is_dismissed": true})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLiteStoreCreateAssignsID(t *testing.T) {
	s := testutil.NewTestStore(t)

	raw, err := s.Create(context.Background(), model.EntityEventParticipation, map[string]any{
		"event_id":   "e1",
		"user_email": "a@example.com",
	})
	require.NoError(t, err)

	var rec model.ResponseRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "e1", rec.EventID)
	assert.False(t, rec.RespondedAt.IsZero())
}

func TestSQLiteStoreDismissals(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Dismiss(ctx, "a@example.com", "group_g1"))
	require.NoError(t, s.Dismiss(ctx, "a@example.com", "group_g1"))
	require.NoError(t, s.Dismiss(ctx, "b@example.com", "group_g2"))

	got, err := s.Dismissed(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"group_g1": true}, got)

	none, err := s.Dismissed(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}
