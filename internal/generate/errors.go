package generate

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned when a prompt encodes to zero tokens. It is
// fatal to that prompt only; the session moves on to the next input line.
var ErrEmptyPrompt = errors.New("prompt encodes to zero tokens")

// UnknownSpecialTokenError reports a vocabulary missing a required special
// token. It is raised once at session construction and is session-fatal.
type UnknownSpecialTokenError struct {
	Name string
}

func (e *UnknownSpecialTokenError) Error() string {
	return fmt.Sprintf("vocabulary is missing special token %q", e.Name)
}

// ForwardError wraps a failure from the model capability. A failed forward
// pass invalidates the cache state for the prompt, so it is session-fatal
// and never retried.
type ForwardError struct {
	Step int
	Err  error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("model forward at step %d: %v", e.Step, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}
