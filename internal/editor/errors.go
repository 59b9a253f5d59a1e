package editor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies workflow failures. None of them is fatal: the caller
// may retry after any of them without cleanup.
type ErrorKind string

const (
	ErrorValidation   ErrorKind = "validation"
	ErrorNotFound     ErrorKind = "not_found"
	ErrorPathNotFound ErrorKind = "path_not_found"
	ErrorTransport    ErrorKind = "transport"
)

// Error is the single error type workflows return to their callers.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrNoTargetSelected = &Error{Kind: ErrorValidation, Code: "no_target_selected", Message: "select a target first"}
	ErrMultipleTargets  = &Error{Kind: ErrorValidation, Code: "multiple_targets_selected", Message: "only one target permitted"}
	ErrNothingToSubmit  = &Error{Kind: ErrorValidation, Code: "nothing_to_submit", Message: "select a parent element or draw a line first"}

	// ErrSuperseded means the selection changed while a lookup was in flight
	// and its result was dropped. It is never shown to the user.
	ErrSuperseded = errors.New("editor: selection changed while the request was in flight")

	ErrSessionNotFound = errors.New("editor: session not found")
)

// KindOf reports the classification of err, if it is an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// UserMessage is the text a notice shows for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func newError(kind ErrorKind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	}
	if k, ok := KindOf(err); ok {
		return string(k)
	}
	return "error"
}
