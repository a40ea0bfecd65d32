// Package anerr defines the error taxonomy shared by every component of
// the anidb client core. Errors are values: every public operation
// returns one of the Kinds below, wrapped with enough context (path,
// protocol code) for a caller to act on it without re-deriving state.
package anerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error without fixing its message, mirroring the
// taxonomy in the design document's error handling section.
type Kind int

const (
	Unknown Kind = iota
	InvalidParameter
	NotFound
	PermissionDenied
	IOError
	OutOfMemory
	Cancelled
	Timeout
	Network
	Protocol
	VersionMismatch
	Cache
	Busy
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case IOError:
		return "Io"
	case OutOfMemory:
		return "OutOfMemory"
	case Cancelled:
		return "Cancelled"
	case Timeout:
		return "Timeout"
	case Network:
		return "Network"
	case Protocol:
		return "Protocol"
	case VersionMismatch:
		return "VersionMismatch"
	case Cache:
		return "Cache"
	case Busy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every public operation
// in this module. It carries a Kind for programmatic dispatch, a
// human message, optional context (path/protocol code), and an optional
// wrapped cause. It has no separate fingerprint field.
type Error struct {
	kind    Kind
	msg     string
	path    string
	code    uint16
	cause   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.kind, e.msg)
	if e.path != "" {
		s = fmt.Sprintf("%s (path=%s)", s, e.path)
	}
	if e.code != 0 {
		s = fmt.Sprintf("%s (code=%d)", s, e.code)
	}
	if e.cause != nil {
		s = fmt.Sprintf("%s: %v", s, e.cause)
	}
	return s
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf reports the classifying kind of err, or Unknown if err is not
// (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return Unknown
}

// ProtocolCode reports the AniDB response code attached to err, if any.
func ProtocolCode(err error) (uint16, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae.kind == Protocol {
		return ae.code, true
	}
	return 0, false
}

// New builds a new Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and a message to an existing cause, preserving it
// for errors.Unwrap/errors.Is/errors.As chains via github.com/pkg/errors.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// WithPath annotates e with the file path that was being operated on.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.path = path
	return &cp
}

// WithProtocolCode builds a new Error of kind Protocol carrying the
// AniDB response code and text that produced it.
func WithProtocolCode(code uint16, text string) *Error {
	return &Error{kind: Protocol, msg: text, code: code}
}

// Path returns the context path attached to e, if any.
func (e *Error) Path() string { return e.path }

// Is allows errors.Is(err, anerr.Cancelled) style matching against the
// sentinel Kind values below.
func (e *Error) Is(target error) bool {
	k, ok := target.(sentinelKind)
	return ok && e.kind == Kind(k)
}

type sentinelKind Kind

// Sentinels usable with errors.Is, e.g. errors.Is(err, anerr.ErrCancelled).
var (
	ErrCancelled       = sentinelKind(Cancelled)
	ErrBusy            = sentinelKind(Busy)
	ErrTimeout         = sentinelKind(Timeout)
	ErrNotFound        = sentinelKind(NotFound)
	ErrOutOfMemory     = sentinelKind(OutOfMemory)
)

func (s sentinelKind) Error() string { return Kind(s).String() }
