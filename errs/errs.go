// Package errs defines the error taxonomy shared by the container codec,
// the MaxSim engine and the backends. Every error surfaced by those
// packages matches exactly one of the sentinel kinds via errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema reports a dimension mismatch, a malformed header or a
	// non-contiguous document run.
	ErrSchema = errors.New("schema error")

	// ErrTruncated reports a header or record region shorter than declared.
	ErrTruncated = errors.New("truncated file")

	// ErrIO reports an underlying read or write failure.
	ErrIO = errors.New("i/o error")

	// ErrInvalidArgument reports a bad caller-supplied value such as a
	// non-positive top_k, an empty corpus or a malformed filter.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error carries the context needed to identify which file, record or
// query triggered a failure.
type Error struct {
	Kind   error
	Op     string
	Path   string
	Record int64 // -1 when not applicable
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Record >= 0 {
		fmt.Fprintf(&b, " at record %d", e.Record)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New builds an Error of the given kind with a formatted message.
func New(kind error, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Record: -1, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around cause. It returns nil
// when cause is nil.
func Wrap(kind error, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Record: -1, Err: cause}
}

// WithPath returns err annotated with a file path when err is an *Error
// that does not already carry one; other errors are returned unchanged.
func WithPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		cp := *e
		cp.Path = path
		return &cp
	}
	return err
}

// InvalidArgument is shorthand for New(ErrInvalidArgument, ...).
func InvalidArgument(op string, format string, args ...interface{}) *Error {
	return New(ErrInvalidArgument, op, format, args...)
}

// Schema is shorthand for New(ErrSchema, ...).
func Schema(op string, format string, args ...interface{}) *Error {
	return New(ErrSchema, op, format, args...)
}
