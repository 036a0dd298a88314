package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed completion.
type ErrorKind string

const (
	KindUnavailable   ErrorKind = "unavailable"
	KindUpstream      ErrorKind = "upstream"
	KindEmptyResponse ErrorKind = "empty_response"
)

// ErrNotConfigured is wrapped when no chat model was built at startup.
var ErrNotConfigured = errors.New("ai: completion service is not configured")

// Error reports a failed call to the completion service.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("ai: %s", e.Kind)
	}
	return fmt.Sprintf("ai: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
