package model

import "strings"

// Viewer is the authenticated actor a feed is computed for.
type Viewer struct {
	Email  string
	Name   string
	Groups []string
}

// ViewerFromUser builds a Viewer from its store record.
func ViewerFromUser(u User) Viewer {
	return Viewer{
		Email:  u.Email,
		Name:   u.FullName,
		Groups: u.GroupNames,
	}
}

// Key is the cache key for the viewer.
func (v Viewer) Key() string {
	return strings.ToLower(strings.TrimSpace(v.Email))
}

// Is reports whether email identifies this viewer.
func (v Viewer) Is(email string) bool {
	return email != "" && strings.EqualFold(strings.TrimSpace(email), v.Email)
}

// InGroup reports whether the viewer belongs to the named group.
func (v Viewer) InGroup(name string) bool {
	if name == "" {
		return false
	}
	for _, g := range v.Groups {
		if strings.EqualFold(g, name) {
			return true
		}
	}
	return false
}

// InAnyGroup reports whether the viewer belongs to at least one of names.
func (v Viewer) InAnyGroup(names []string) bool {
	for _, n := range names {
		if v.InGroup(n) {
			return true
		}
	}
	return false
}
