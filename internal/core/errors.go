package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a conversation id does not exist or belongs
// to a different user.
var ErrNotFound = errors.New("conversation not found")

// ValidationError reports a missing or empty required field. It is returned
// before any state is mutated.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// UpstreamError wraps a failure from the completion oracle or another
// collaborator. The request is aborted; no retries are attempted.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
