package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewerMembership(t *testing.T) {
	v := ViewerFromUser(User{
		Email:      "Trainee@Example.com",
		FullName:   "Dana",
		GroupNames: []string{"Morning Crew", "A"},
	})

	assert.Equal(t, "trainee@example.com", v.Key())
	assert.True(t, v.Is("trainee@example.com"))
	assert.False(t, v.Is(""))
	assert.True(t, v.InGroup("a"))
	assert.False(t, v.InGroup(""))
	assert.False(t, v.InGroup("B"))
	assert.True(t, v.InAnyGroup([]string{"B", "morning crew"}))
	assert.False(t, v.InAnyGroup(nil))
}

func TestHintFor(t *testing.T) {
	assert.Equal(t, ToneUrgent, HintFor(KindEventReminder, false).Tone)
	assert.Equal(t, TonePositive, HintFor(KindEventReminder, true).Tone)
	assert.Equal(t, HintFor(KindDirectMessage, false), HintFor(KindDirectMessage, true),
		"only event reminders depend on response state")
}

func TestKindPriority(t *testing.T) {
	assert.Less(t, KindEventReminder.Priority(), KindDirectMessage.Priority())
	assert.Less(t, KindBroadcastMessage.Priority(), KindWeightReminder.Priority())
	assert.Equal(t, len(kindPriority), Kind("unknown").Priority())
}
