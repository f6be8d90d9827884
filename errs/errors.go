// Package errs holds the error taxonomy shared by the registry, the session
// manager, the data facade and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	NotFound
	Validation
	Authentication
	NetworkUnreachable
	Timeout
	AlreadyInProgress
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Validation:
		return "validation_error"
	case Authentication:
		return "authentication_error"
	case NetworkUnreachable:
		return "network_unreachable"
	case Timeout:
		return "timeout"
	case AlreadyInProgress:
		return "already_in_progress"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown_remote_error"
	}
}

// Error is a classified error. Msg is safe to show to API clients, Err keeps
// the original cause for logs.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// ConnectionFailed wraps a failed connect attempt. kind should be one of
// Authentication, NetworkUnreachable, Timeout or Unknown.
func ConnectionFailed(kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: "connect", Msg: connectMessage(kind), Err: err}
}

func connectMessage(kind Kind) string {
	switch kind {
	case Authentication:
		return "router rejected the credentials"
	case NetworkUnreachable:
		return "router is unreachable"
	case Timeout:
		return "connection to router timed out"
	default:
		return "connection to router failed"
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message returns the client-visible message of err without the wrapped
// cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg == "" {
			return e.Kind.String()
		}
		return e.Msg
	}
	return "internal error"
}
