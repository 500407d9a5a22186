package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies broker failures. The HTTP layer maps kinds to status
// codes; nothing else should inspect them.
type ErrorKind string

const (
	KindChannelNotFound  ErrorKind = "channel_not_found"
	KindIdentityConflict ErrorKind = "identity_conflict"
	KindSigningConfig    ErrorKind = "signing_config"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindInternal         ErrorKind = "internal"
)

// Error is returned by Join and Leave.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("session %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of a broker error, or KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// PublicMessage is safe to return to widget clients. Wrapped causes are never
// exposed; they may carry store or provider details.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindChannelNotFound:
		return "Invalid token"
	case KindIdentityConflict:
		return "Visitor could not be registered"
	case KindSigningConfig:
		return "Voice channel is not configured"
	case KindCapacityExceeded:
		return "Too many active calls on this channel"
	default:
		var se *Error
		if errors.As(err, &se) && se.Op == opLeave {
			return "Unable to end call"
		}
		return "Unable to start call"
	}
}
