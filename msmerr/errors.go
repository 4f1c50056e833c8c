// Package msmerr provides the structured error types shared by the sampling
// and free-energy packages. Errors carry a code so callers can branch with
// errors.Is against the exported sentinels, plus free-form context.
package msmerr

import (
	"fmt"
	"sort"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	CodeInvalidScheme     Code = "INVALID_SCHEME"     // unknown sampling scheme name
	CodeInsufficientData  Code = "INSUFFICIENT_DATA"  // fewer observations than requested
	CodeDimensionMismatch Code = "DIMENSION_MISMATCH" // query arity differs from the index
	CodeDegenerateBinning Code = "DEGENERATE_BINNING" // every bin of every state is empty
	CodeConfiguration     Code = "CONFIGURATION"      // required field or artifact absent
)

// Error is a coded error with optional context and cause.
type Error struct {
	// Code classifies the error. Two Errors with the same Code match under errors.Is.
	Code Code

	// Message describes what went wrong.
	Message string

	// Context holds key-value details such as the protein or file involved.
	Context map[string]string

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// Sentinels for errors.Is.
var (
	ErrInvalidScheme     = &Error{Code: CodeInvalidScheme, Message: "invalid sampling scheme"}
	ErrInsufficientData  = &Error{Code: CodeInsufficientData, Message: "insufficient data"}
	ErrDimensionMismatch = &Error{Code: CodeDimensionMismatch, Message: "dimension mismatch"}
	ErrDegenerateBinning = &Error{Code: CodeDegenerateBinning, Message: "degenerate binning"}
	ErrConfiguration     = &Error{Code: CodeConfiguration, Message: "configuration error"}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates an Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With adds a context key-value pair and returns e for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = fmt.Sprint(value)
	return e
}

// WithCause sets the wrapped cause and returns e for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// InvalidScheme reports an unrecognized sampling scheme name.
func InvalidScheme(name string) *Error {
	return New(CodeInvalidScheme, "scheme %q must be one of linear, random or edge", name)
}

// InsufficientData reports a request for more items than are available.
func InsufficientData(what string, have, want int) *Error {
	return New(CodeInsufficientData, "requested %d %s but only %d available", want, what, have).
		With("have", have).
		With("want", want)
}

// DimensionMismatch reports a point or request whose arity is wrong.
func DimensionMismatch(got, want int) *Error {
	return New(CodeDimensionMismatch, "got %d dimensions, want %d", got, want)
}

// DegenerateBinning reports a histogram with no observation in any bin.
func DegenerateBinning(states int) *Error {
	return New(CodeDegenerateBinning, "all bins empty across %d states", states)
}

// Configuration reports a missing or invalid configuration field or artifact.
func Configuration(format string, args ...any) *Error {
	return New(CodeConfiguration, format, args...)
}
