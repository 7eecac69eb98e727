package source

import (
	"context"
	"fmt"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
)

// DirectMessages surfaces unread one-to-one messages addressed to the viewer.
type DirectMessages struct {
	store store.Store
}

// NewDirectMessages creates the direct message adapter.
func NewDirectMessages(s store.Store) *DirectMessages {
	return &DirectMessages{store: s}
}

func (a *DirectMessages) Source() string { return NameDirectMessage }

func (a *DirectMessages) RawID(m model.DirectMessage) string { return m.ID }

func (a *DirectMessages) Fetch(
	ctx context.Context,
	v model.Viewer,
) ([]model.DirectMessage, error) {
	msgs, err := store.ListInto[model.DirectMessage](ctx, a.store, model.EntityMessage, store.Query{
		Filters: []store.Filter{store.EqFold("receiver_email", v.Email)},
		Sort:    "-created_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching direct messages: %w", err)
	}
	return msgs, nil
}

func (a *DirectMessages) Relevant(m model.DirectMessage, v model.Viewer, _ Env) bool {
	return v.Is(m.ReceiverEmail) && !m.IsRead
}

func (a *DirectMessages) ToNotification(m model.DirectMessage, _ Env) model.Notification {
	from := m.SenderName
	if from == "" {
		from = m.SenderEmail
	}
	title := "New message from " + from
	if m.Subject != "" {
		title = m.Subject
	}
	return model.Notification{
		Kind:      model.KindDirectMessage,
		Title:     title,
		Details:   PlainText(m.Content),
		Timestamp: m.CreatedDate,
		Hint:      model.HintFor(model.KindDirectMessage, false),
		Payload:   &m,
	}
}

// BroadcastMessages surfaces admin announcements targeted at the viewer
// that the viewer has not read.
type BroadcastMessages struct {
	store store.Store
}

// NewBroadcastMessages creates the broadcast message adapter.
func NewBroadcastMessages(s store.Store) *BroadcastMessages {
	return &BroadcastMessages{store: s}
}

func (a *BroadcastMessages) Source() string { return NameBroadcastMessage }

func (a *BroadcastMessages) RawID(m model.BroadcastMessage) string { return m.ID }

func (a *BroadcastMessages) Fetch(
	ctx context.Context,
	_ model.Viewer,
) ([]model.BroadcastMessage, error) {
	msgs, err := store.ListInto[model.BroadcastMessage](ctx, a.store, model.EntityAdminMessage, store.Query{
		Sort: "-created_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching broadcast messages: %w", err)
	}
	return msgs, nil
}

func (a *BroadcastMessages) Relevant(m model.BroadcastMessage, v model.Viewer, _ Env) bool {
	return Targets(m, v) && !m.ReadReceipts.ReadBy(v.Email)
}

func (a *BroadcastMessages) ToNotification(m model.BroadcastMessage, _ Env) model.Notification {
	return model.Notification{
		Kind:      model.KindBroadcastMessage,
		Title:     m.Title,
		Details:   PlainText(m.Content),
		Timestamp: m.CreatedDate,
		Hint:      model.HintFor(model.KindBroadcastMessage, false),
		Payload:   &m,
	}
}

// Targets reports whether a broadcast is addressed to the viewer.
func Targets(m model.BroadcastMessage, v model.Viewer) bool {
	switch m.TargetType {
	case model.TargetAll:
		return true
	case model.TargetSpecificGroup:
		return v.InGroup(m.TargetGroup)
	case model.TargetSpecificUser:
		return v.Is(m.TargetUserEmail)
	}
	return false
}

// GroupMessages surfaces unread messages of the viewer's groups. A message
// the viewer dismissed locally stays hidden regardless of its receipts.
type GroupMessages struct {
	store      store.Store
	dismissals store.Dismissals
}

// NewGroupMessages creates the group message adapter. dismissals may be
// nil, in which case only remote receipts are consulted.
func NewGroupMessages(s store.Store, dismissals store.Dismissals) *GroupMessages {
	return &GroupMessages{store: s, dismissals: dismissals}
}

// groupMessage pairs a record with its local dismissal state, resolved at
// fetch time.
type groupMessage struct {
	model.GroupMessage
	dismissed bool
}

func (a *GroupMessages) Source() string { return NameGroupMessage }

func (a *GroupMessages) RawID(m groupMessage) string { return m.ID }

func (a *GroupMessages) Fetch(
	ctx context.Context,
	v model.Viewer,
) ([]groupMessage, error) {
	if len(v.Groups) == 0 {
		return nil, nil
	}

	groups := make([]any, len(v.Groups))
	for i, g := range v.Groups {
		groups[i] = g
	}

	msgs, err := store.ListInto[model.GroupMessage](ctx, a.store, model.EntityGroupMessage, store.Query{
		Filters: []store.Filter{store.In("group_name", groups...)},
		Sort:    "-created_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching group messages: %w", err)
	}

	var dismissed map[string]bool
	if a.dismissals != nil {
		dismissed, err = a.dismissals.Dismissed(ctx, v.Key())
		if err != nil {
			return nil, fmt.Errorf("loading local dismissals: %w", err)
		}
	}

	out := make([]groupMessage, len(msgs))
	for i, m := range msgs {
		id := model.NotificationID(NameGroupMessage, m.ID)
		out[i] = groupMessage{GroupMessage: m, dismissed: dismissed[id]}
	}
	return out, nil
}

func (a *GroupMessages) Relevant(m groupMessage, v model.Viewer, _ Env) bool {
	return v.InGroup(m.GroupName) &&
		!m.ReadReceipts.ReadBy(v.Email) &&
		!m.dismissed
}

func (a *GroupMessages) ToNotification(m groupMessage, _ Env) model.Notification {
	title := m.Title
	if title == "" {
		title = "New message in " + m.GroupName
	}
	rec := m.GroupMessage
	return model.Notification{
		Kind:      model.KindGroupMessage,
		Title:     title,
		Details:   PlainText(m.Content),
		Timestamp: m.CreatedDate,
		Hint:      model.HintFor(model.KindGroupMessage, false),
		Payload:   &rec,
	}
}
