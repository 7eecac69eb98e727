package model

import "time"

// Tone is the color class of a notification's visual hint.
type Tone string

const (
	ToneInfo      Tone = "info"
	ToneBroadcast Tone = "broadcast"
	ToneGroup     Tone = "group"
	ToneWorkout   Tone = "workout"
	ToneWeight    Tone = "weight"
	ToneUrgent    Tone = "urgent"
	TonePositive  Tone = "positive"
)

// VisualHint is the presentation tag (icon and color class) of a notification.
type VisualHint struct {
	Icon string `json:"icon"`
	Tone Tone   `json:"tone"`
}

// HintFor derives the visual hint for a kind. Only event reminders depend
// on anything other than the kind: an answered reminder is shown as positive.
func HintFor(kind Kind, responded bool) VisualHint {
	switch kind {
	case KindDirectMessage:
		return VisualHint{Icon: "✉", Tone: ToneInfo}
	case KindBroadcastMessage:
		return VisualHint{Icon: "📢", Tone: ToneBroadcast}
	case KindGroupMessage:
		return VisualHint{Icon: "👥", Tone: ToneGroup}
	case KindWorkoutAssignment:
		return VisualHint{Icon: "🏋", Tone: ToneWorkout}
	case KindWeightReminder:
		return VisualHint{Icon: "⚖", Tone: ToneWeight}
	case KindEventReminder:
		if responded {
			return VisualHint{Icon: "✔", Tone: TonePositive}
		}
		return VisualHint{Icon: "⏰", Tone: ToneUrgent}
	}
	return VisualHint{Icon: "•", Tone: ToneInfo}
}

// Notification is a single entry of the updates feed. Notifications are
// synthesized on every aggregation and never persisted.
type Notification struct {
	// ID is "<source>_<rawID>" and is unique within a feed.
	ID string `json:"id"`

	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Details string `json:"details"`

	// Timestamp orders the feed. Messages use their send time, reminders
	// their creation time and event reminders the event start.
	Timestamp time.Time `json:"timestamp"`

	Hint VisualHint `json:"visual_hint"`

	// Responded is set on event reminders the viewer already answered.
	Responded bool `json:"responded,omitempty"`

	// Payload is the originating raw record (a pointer to one of the
	// record types in this package), consumed by action handlers.
	Payload any `json:"payload,omitempty"`
}

// NotificationID builds the namespaced feed identifier for a raw record.
func NotificationID(source, rawID string) string {
	return source + "_" + rawID
}
