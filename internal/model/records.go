package model

import "time"

// TargetType selects the audience of a broadcast message.
type TargetType string

const (
	TargetAll           TargetType = "all"
	TargetSpecificGroup TargetType = "specific_group"
	TargetSpecificUser  TargetType = "specific_user"
)

// User is the store record backing viewer identity.
type User struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	GroupNames []string `json:"group_names"`
}

// DirectMessage is a one-to-one message from a coach to a trainee.
type DirectMessage struct {
	ID            string    `json:"id"`
	SenderEmail   string    `json:"sender_email"`
	SenderName    string    `json:"sender_name"`
	ReceiverEmail string    `json:"receiver_email"`
	Subject       string    `json:"subject"`
	Content       string    `json:"content"`
	IsRead        bool      `json:"is_read"`
	CreatedDate   time.Time `json:"created_date"`
}

// BroadcastMessage is an admin announcement addressed to everyone, a group
// or a single user. Read state is tracked per viewer in ReadReceipts.
type BroadcastMessage struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Content         string       `json:"content"`
	TargetType      TargetType   `json:"target_type"`
	TargetGroup     string       `json:"target_group"`
	TargetUserEmail string       `json:"target_user_email"`
	ReadReceipts    ReadReceipts `json:"read_receipts"`
	CreatedDate     time.Time    `json:"created_date"`
}

// GroupMessage is a message posted to a training group.
type GroupMessage struct {
	ID           string       `json:"id"`
	GroupName    string       `json:"group_name"`
	SenderName   string       `json:"sender_name"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	ReadReceipts ReadReceipts `json:"read_receipts"`
	CreatedDate  time.Time    `json:"created_date"`
}

// GroupEvent is a calendar event shared with one or more groups.
type GroupEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventDate   time.Time `json:"event_date"`
	GroupNames  []string  `json:"group_names"`
}

// WorkoutAssignment is a workout a coach assigned to a trainee.
type WorkoutAssignment struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"user_email"`
	WorkoutName string    `json:"workout_name"`
	CoachName   string    `json:"coach_name"`
	Notes       string    `json:"notes"`
	IsAccepted  bool      `json:"is_accepted"`
	CreatedDate time.Time `json:"created_date"`
}

// WeightReminder asks a trainee to log a new weight measurement.
type WeightReminder struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"user_email"`
	Message     string    `json:"message"`
	IsDismissed bool      `json:"is_dismissed"`
	CreatedDate time.Time `json:"created_date"`
}

// ResponseRecord is an event-participation record: evidence that a viewer
// already answered an event. Only its presence matters to the feed.
type ResponseRecord struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	UserEmail   string    `json:"user_email"`
	Status      string    `json:"status"`
	RespondedAt time.Time `json:"created_date"`
}
