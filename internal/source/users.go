package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/store"
)

// ErrUnknownViewer is returned when no user record matches the viewer email.
var ErrUnknownViewer = errors.New("unknown viewer")

// Users resolves viewer identities from User records.
type Users struct {
	store store.Store
}

// NewUsers creates a viewer resolver backed by s.
func NewUsers(s store.Store) *Users {
	return &Users{store: s}
}

// Resolve looks up the user with email and returns it as a Viewer.
func (u *Users) Resolve(ctx context.Context, email string) (model.Viewer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Viewer{}, fmt.Errorf("resolving viewer: %w", ErrUnknownViewer)
	}

	users, err := store.ListInto[model.User](ctx, u.store, model.EntityUser, store.Query{
		Filters: []store.Filter{store.EqFold("email", email)},
		Limit:   1,
	})
	if err != nil {
		return model.Viewer{}, fmt.Errorf("resolving viewer %s: %w", email, err)
	}
	if len(users) == 0 {
		return model.Viewer{}, fmt.Errorf("resolving viewer %s: %w", email, ErrUnknownViewer)
	}
	return model.ViewerFromUser(users[0]), nil
}
