package mediaerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies request failures at the HTTP boundary.
type Kind string

const (
	NoIntentDetected   Kind = "NoIntentDetected"
	UnmappedPhrase     Kind = "UnmappedPhrase"
	UnknownCommand     Kind = "UnknownCommand"
	UploadMissing      Kind = "UploadMissing"
	UploadTooLarge     Kind = "UploadTooLarge"
	UploadRejected     Kind = "UploadRejected"
	MergeOrderMismatch Kind = "MergeOrderMismatch"
	OutputNotFound     Kind = "OutputNotFound"
	EngineFailure      Kind = "EngineFailure"
	Internal           Kind = "Internal"
)

// Error carries a Kind plus an optional wrapped cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Detail != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind with a formatted detail message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, err error, detail string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the kind of err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Message returns the user facing part of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch {
		case e.Detail != "" && e.Err != nil:
			return fmt.Sprintf("%s: %v", e.Detail, e.Err)
		case e.Detail != "":
			return e.Detail
		case e.Err != nil:
			return e.Err.Error()
		}
		return string(e.Kind)
	}
	return err.Error()
}

// StatusCode maps a kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case NoIntentDetected, UnmappedPhrase, UnknownCommand, UploadMissing, MergeOrderMismatch:
		return http.StatusBadRequest
	case UploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case UploadRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
