package core

import (
	"errors"
	"fmt"
)

// Kind classifies every error returned by the editing packages.
type Kind int

const (
	// InvalidFormat means the input is not recognisable as the target
	// format at all (bad signature), or an argument is unusable.
	InvalidFormat Kind = iota + 1
	// ParseError means the container is structurally malformed: truncated
	// segments, lengths past the buffer, CRC mismatches, bad sub-structures,
	// or output that no longer decodes.
	ParseError
	// IOError covers the file-access layer around the byte editors.
	IOError
)

func (k Kind) String() string {
	switch k {
	case InvalidFormat:
		return "invalid format"
	case ParseError:
		return "parse error"
	case IOError:
		return "io error"
	default:
		return "unknown error"
	}
}

// Error is the single error type of the module. Callers switch on Kind
// or use errors.Is against the Err* sentinels.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels matching any *Error of the same kind.
var (
	ErrInvalidFormat = &Error{Kind: InvalidFormat}
	ErrParse         = &Error{Kind: ParseError}
	ErrIO            = &Error{Kind: IOError}
)

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// InvalidFormatf builds an InvalidFormat error.
func InvalidFormatf(format string, args ...any) *Error {
	return &Error{Kind: InvalidFormat, Msg: fmt.Sprintf(format, args...)}
}

// Parsef builds a ParseError.
func Parsef(format string, args ...any) *Error {
	return &Error{Kind: ParseError, Msg: fmt.Sprintf(format, args...)}
}

// WrapParse turns a collaborator failure (inflate, decode) into a ParseError.
func WrapParse(err error, msg string) *Error {
	return &Error{Kind: ParseError, Msg: msg, Err: err}
}

// IOErr wraps a filesystem failure. op names what was being done.
func IOErr(err error, op string) *Error {
	return &Error{Kind: IOError, Msg: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
