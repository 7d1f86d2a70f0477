// Package errs defines the error taxonomy shared by every component of the
// storage engine, so that callers at the public boundary can distinguish a
// bad argument from a corrupted page from a fatal, unrecoverable failure.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// InvalidArgument covers null/absent keys, inverted ranges, unknown
	// configuration, and negative LSNs. Reported to the caller without
	// altering persistent state.
	InvalidArgument Kind = iota
	// Closed classifies an operation on a handle that has already been
	// closed. No code path in this module returns it: after Engine.Close,
	// operations fail with whatever error the closed log or data file
	// produces.
	Closed
	// Io covers failures of an underlying read/write/sync, including short reads.
	Io
	// Corrupted covers checksum mismatches, bad node-kind tags, impossible
	// lengths, and page size mismatches.
	Corrupted
	// Fatal covers conditions the engine cannot make progress past: every
	// frame pinned during eviction, or an error mid-recovery.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case Closed:
		return "Closed"
	case Io:
		return "Io"
	case Corrupted:
		return "Corrupted"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned at every component boundary.
// Every error carries the kind, the originating component, and, where
// applicable, the offending LSN or pageId (see the core spec's §7).
type Error struct {
	Kind      Kind
	Component string
	LSN       int64 // -1 if not applicable
	PageID    int64 // -1 if not applicable
	Message   string
	Cause     error
}

// New constructs an Error with no offending LSN or pageId.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, LSN: -1, PageID: -1, Message: message}
}

// Wrap constructs an Error that wraps an underlying cause.
func Wrap(kind Kind, component string, cause error, message string) *Error {
	return &Error{Kind: kind, Component: component, LSN: -1, PageID: -1, Message: message, Cause: cause}
}

// WithLSN attaches the offending LSN to the error and returns it for chaining.
func (e *Error) WithLSN(lsn int64) *Error {
	e.LSN = lsn
	return e
}

// WithPageID attaches the offending pageId to the error and returns it for chaining.
func (e *Error) WithPageID(pageID int64) *Error {
	e.PageID = pageID
	return e
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Message)
	if e.PageID >= 0 {
		msg = fmt.Sprintf("%s (pageId=%d)", msg, e.PageID)
	}
	if e.LSN >= 0 {
		msg = fmt.Sprintf("%s (lsn=%d)", msg, e.LSN)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, errs.New(errs.Corrupted, "", "")) style checks are not
// required; prefer errs.Is(err, errs.Corrupted) instead.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is an *Error, or Io otherwise
// (every unclassified failure is treated as an I/O failure at the boundary).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Io
}
