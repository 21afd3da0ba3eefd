// Package riegelierr classifies the error kinds produced throughout the
// container pipeline: DataLoss is recoverable by skipping the offending
// chunk, the others require the caller to abandon the object.
package riegelierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can decide whether Recover applies.
type Kind int

const (
	// Unknown is the zero value; never produced by this module's errors.
	Unknown Kind = iota
	// DataLoss indicates a format or checksum violation. Recoverable by
	// skipping the offending chunk via Recover.
	DataLoss
	// InvalidArgument indicates caller misuse: an out-of-range seek, a
	// non-seekable source, or an API called out of order.
	InvalidArgument
	// Internal indicates an invariant violation that is always a bug.
	Internal
	// Unavailable indicates an underlying I/O failure. Not recoverable
	// through Recover; the I/O source must itself recover first.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case DataLoss:
		return "DataLoss"
	case InvalidArgument:
		return "InvalidArgument"
	case Internal:
		return "Internal"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Error wraps a cause with a Kind and a human-readable message naming the
// offending position and construct.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind around an existing error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
