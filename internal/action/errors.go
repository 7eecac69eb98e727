package action

import (
	"errors"
	"fmt"

	"github.com/vitrix/updates-center/internal/model"
)

var (
	// ErrCollapsed is returned when acknowledging a message that must be
	// expanded first.
	ErrCollapsed = errors.New("expand the message before acknowledging it")

	// ErrUnknownNotification is returned for ids that are not in the feed.
	ErrUnknownNotification = errors.New("notification not in feed")
)

// MutationError is a failed remote write made on behalf of an action.
type MutationError struct {
	Kind model.Kind
	ID   string
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
