package action

import (
	"context"
	"fmt"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
)

func (d *Dispatcher) dismissDirect(ctx context.Context, req request) (Effect, error) {
	req.entry.Remove(req.n.ID)
	id := rawID(req.n)

	d.background(ctx, req.n, func(ctx context.Context) error {
		return d.store.Update(ctx, model.EntityMessage, id, map[string]any{"is_read": true})
	})
	return Effect{Removed: true}, nil
}

func (d *Dispatcher) readBroadcast(ctx context.Context, req request) (Effect, error) {
	req.entry.Remove(req.n.ID)
	viewer := req.entry.Viewer.Email
	id := rawID(req.n)

	d.background(ctx, req.n, func(ctx context.Context) error {
		return d.markRead(ctx, model.EntityAdminMessage, id, viewer)
	})
	return Effect{Removed: true}, nil
}

// acknowledgeGroup writes the receipt, records a local dismissal that
// holds even if the receipt write failed, and recomputes the feed.
func (d *Dispatcher) acknowledgeGroup(ctx context.Context, req request) (Effect, error) {
	viewer := req.entry.Viewer

	if err := d.markRead(ctx, model.EntityGroupMessage, rawID(req.n), viewer.Email); err != nil {
		d.warn(&MutationError{Kind: req.n.Kind, ID: req.n.ID, Err: err})
	}

	if err := d.dismissals.Dismiss(ctx, viewer.Key(), req.n.ID); err != nil {
		return Effect{}, &MutationError{Kind: req.n.Kind, ID: req.n.ID, Err: err}
	}
	req.entry.Remove(req.n.ID)

	d.feed.Clear()
	entry, err := d.feed.Reload(ctx, viewer.Email)
	if err != nil {
		return Effect{Removed: true}, err
	}
	return Effect{Removed: true, Entry: entry}, nil
}

// actOnWeight dismisses the reminder and sends the viewer to weight entry.
// A failed write is reconciled by a full reload.
func (d *Dispatcher) actOnWeight(ctx context.Context, req request) (Effect, error) {
	req.entry.Remove(req.n.ID)
	effect := Effect{Removed: true, Navigate: NavWeightEntry}

	err := d.store.Update(ctx, model.EntityWeightReminder, rawID(req.n), map[string]any{"is_dismissed": true})
	if err == nil {
		return effect, nil
	}
	d.warn(&MutationError{Kind: req.n.Kind, ID: req.n.ID, Err: err})

	d.feed.Clear()
	entry, err := d.feed.Reload(ctx, req.entry.Viewer.Email)
	if err != nil {
		return effect, err
	}
	effect.Entry = entry
	return effect, nil
}

func (d *Dispatcher) openEvent(_ context.Context, req request) (Effect, error) {
	eventID := rawID(req.n)
	if ev, ok := req.n.Payload.(*model.GroupEvent); ok && ev.ID != "" {
		eventID = ev.ID
	}
	return Effect{Navigate: EventResponseTarget(eventID)}, nil
}

func (d *Dispatcher) openWorkout(_ context.Context, req request) (Effect, error) {
	return Effect{Navigate: WorkoutTarget(rawID(req.n))}, nil
}

// markRead loads the latest receipts of a shared message and writes them
// back with the viewer's receipt set.
func (d *Dispatcher) markRead(ctx context.Context, entity, id, viewer string) error {
	type receipts struct {
		ReadReceipts model.ReadReceipts `json:"read_receipts"`
	}

	recs, err := store.ListInto[receipts](ctx, d.store, entity, store.Query{
		Filters: []store.Filter{store.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return fmt.Errorf("loading receipts: %w", err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("loading receipts of %s %s: %w", entity, id, store.ErrNotFound)
	}

	updated := recs[0].ReadReceipts.MarkRead(viewer, d.now().UTC())
	if err := d.store.Update(ctx, entity, id, map[string]any{"read_receipts": updated}); err != nil {
		return fmt.Errorf("writing receipts: %w", err)
	}
	return nil
}
