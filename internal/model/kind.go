package model

// Kind identifies the variant of a feed notification. Each kind maps to
// exactly one source adapter.
type Kind string

const (
	KindDirectMessage     Kind = "direct_message"
	KindBroadcastMessage  Kind = "broadcast_message"
	KindGroupMessage      Kind = "group_message"
	KindEventReminder     Kind = "event_reminder"
	KindWorkoutAssignment Kind = "workout_assignment"
	KindWeightReminder    Kind = "weight_reminder"
)

// kindPriority orders kinds that share a timestamp. Lower sorts first.
var kindPriority = map[Kind]int{
	KindEventReminder:     0,
	KindDirectMessage:     1,
	KindGroupMessage:      2,
	KindBroadcastMessage:  3,
	KindWorkoutAssignment: 4,
	KindWeightReminder:    5,
}

// Priority returns the secondary sort rank for the kind.
// Unknown kinds sort last.
func (k Kind) Priority() int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// Label returns a short human-readable name for the kind.
func (k Kind) Label() string {
	switch k {
	case KindDirectMessage:
		return "Message"
	case KindBroadcastMessage:
		return "Announcement"
	case KindGroupMessage:
		return "Group"
	case KindEventReminder:
		return "Event"
	case KindWorkoutAssignment:
		return "Workout"
	case KindWeightReminder:
		return "Weigh-in"
	}
	return string(k)
}

// Entity names used against the entity store.
const (
	EntityUser               = "User"
	EntityMessage            = "Message"
	EntityAdminMessage       = "AdminMessage"
	EntityGroupMessage       = "GroupMessage"
	EntityGroupEvent         = "GroupEvent"
	EntityWorkoutAssignment  = "WorkoutAssignment"
	EntityWeightReminder     = "WeightReminder"
	EntityEventParticipation = "EventParticipation"
)
