package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a protected call comes back 401. The
// session manager clears the session and the user re-authenticates; there is
// no silent retry with a refreshed token.
var ErrUnauthorized = errors.New("api: unauthorized")

// AuthError is a rejected login. Not retryable automatically.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RemoteError is any other failed round trip: a non-2xx response or a
// transport failure (StatusCode 0).
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}
