package remote

import (
	"errors"
	"fmt"
)

// AuthError indicates that the entity API rejected the configured token.
type AuthError struct {
	BaseURL string
	Code    int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf(
		"authentication failed (%d): check the API token for %s",
		e.Code, e.BaseURL,
	)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is a non-2xx response from the entity API.
type StatusError struct {
	Code   int
	Method string
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.Code, e.Method, e.Path, e.Body,
	)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == 408 || e.Code == 429 || e.Code >= 500
}
