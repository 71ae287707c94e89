package tn3270

import (
	"errors"
	"fmt"

	"github.com/dtg01100/pure3270-sub003/internal/datastream"
)

// ErrorKind is the stable public error taxonomy (spec.md section 7):
// callers switch on Kind, never on error string text or concrete type.
type ErrorKind int

const (
	// IOError means the underlying stream failed or timed out.
	IOError ErrorKind = iota
	// NotConnected means an operation requiring an active session was
	// invoked after Close.
	NotConnected
	// NegotiationFailure means the peer rejected essential options, or
	// the overall negotiation deadline passed with no usable mode
	// reachable.
	NegotiationFailure
	// StateError means the negotiator attempted an invalid transition --
	// a logic bug or a malicious peer.
	StateError
	// DataStreamTruncated means a command ended mid-order; the caller
	// may wait for more bytes up to its deadline.
	DataStreamTruncated
	// DataStreamUnknown means an unrecognised order or command byte was
	// encountered and skipped; the stream continues.
	DataStreamUnknown
	// ProtectedViolation means the user attempted to write a protected
	// cell; keyboard inhibit was set but the session is otherwise
	// unaffected.
	ProtectedViolation
	// Timeout means a deadline was reached on a user operation.
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case IOError:
		return "IOError"
	case NotConnected:
		return "NotConnected"
	case NegotiationFailure:
		return "NegotiationFailure"
	case StateError:
		return "StateError"
	case DataStreamTruncated:
		return "DataStreamTruncated"
	case DataStreamUnknown:
		return "DataStreamUnknown"
	case ProtectedViolation:
		return "ProtectedViolation"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the single public error type this package returns. Callers
// should inspect Kind, not the message text.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error // underlying cause, if any; nil for pure state errors
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tn3270: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("tn3270: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// classifyDataStreamError maps an internal/datastream decode error onto
// the public taxonomy's two DataStream kinds.
func classifyDataStreamError(err error) *Error {
	var dsErr *datastream.Error
	if errors.As(err, &dsErr) {
		if dsErr.Kind == datastream.ErrTruncated {
			return newError(DataStreamTruncated, dsErr.Msg, err)
		}
		return newError(DataStreamUnknown, dsErr.Msg, err)
	}
	return newError(IOError, "unrecognized data-stream error", err)
}
