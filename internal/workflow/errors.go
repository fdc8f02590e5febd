package workflow

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when a transition needs the acting user
// and no session exists.
var ErrNotAuthenticated = errors.New("workflow: not authenticated")

// ValidationError is a client-detected input problem. It blocks submission
// before any network call and is surfaced inline on the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransitionError reports an action attempted from the wrong state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Action, e.From)
}
