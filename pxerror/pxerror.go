// Package pxerror defines the typed error taxonomy a Vizier execution
// session can surface. Every error the core raises carries a Code so
// callers can branch on failure class without string matching, in the
// same spirit as vitess.io/vitess/go/vt/vterrors wrapping vtrpcpb.Code.
package pxerror

import (
	"errors"
	"fmt"
)

// Code classifies the kind of failure, mirroring the shape (not the
// values) of vtrpcpb.Code: a small closed set big enough to drive
// caller behavior, not a full gRPC status-code mirror.
type Code int

const (
	// CodeOK is never attached to an error; it exists so the zero value
	// of Code is distinguishable from a real failure.
	CodeOK Code = iota
	CodeInvalidArgument
	CodeFailedPrecondition
	CodeInternal
	CodeUnavailable
	CodeAborted
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeFailedPrecondition:
		return "FailedPrecondition"
	case CodeInternal:
		return "Internal"
	case CodeUnavailable:
		return "Unavailable"
	case CodeAborted:
		return "Aborted"
	default:
		return "OK"
	}
}

// Kind names the conceptual error categories from the Vizier client
// error taxonomy.
type Kind int

const (
	KindScriptCompileError Kind = iota
	KindScriptValueError
	KindTableNotReceived
	KindUnexpectedEndOfStream
	KindProtocolError
	KindLifecycleError
	KindCallbackError
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindScriptCompileError:
		return "ScriptCompileError"
	case KindScriptValueError:
		return "ScriptValueError"
	case KindTableNotReceived:
		return "TableNotReceived"
	case KindUnexpectedEndOfStream:
		return "UnexpectedEndOfStream"
	case KindProtocolError:
		return "ProtocolError"
	case KindLifecycleError:
		return "LifecycleError"
	case KindCallbackError:
		return "CallbackError"
	case KindTransportError:
		return "TransportError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every core component raises. Line
// and Column are only meaningful for KindScriptCompileError.
type Error struct {
	Kind    Kind
	Code    Code
	Msg     string
	Line    int
	Column  int
	wrapped error
}

func (e *Error) Error() string {
	if e.Kind == KindScriptCompileError && e.Line != 0 {
		return fmt.Sprintf("PxL, line %d.%d: %s", e.Line, e.Column, e.Msg)
	}
	return e.Msg
}

// Unwrap lets errors.Is/errors.As traverse into a wrapped transport or
// callback failure, matching the vterrors.Wrapf idiom.
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is reports whether target is a *Error with the same Kind, so callers
// can do errors.Is(err, pxerror.TableNotReceived("")) style checks, or
// more usefully, switch on errors.As and inspect Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ScriptCompileError builds the error for a non-OK status carrying
// compiler line/column details.
func ScriptCompileError(line, column int, message string) *Error {
	return &Error{
		Kind:   KindScriptCompileError,
		Code:   CodeInvalidArgument,
		Msg:    message,
		Line:   line,
		Column: column,
	}
}

// ScriptValueError builds the error for a non-OK status without
// compiler details (e.g. an empty script).
func ScriptValueError(message string) *Error {
	return newErr(KindScriptValueError, CodeInvalidArgument, "%s", message)
}

// TableNotReceived is raised when the stream closes cleanly but a
// subscribed table name never saw metadata.
func TableNotReceived(tableName string) *Error {
	return newErr(KindTableNotReceived, CodeFailedPrecondition, "Table '%s' not received", tableName)
}

// UnexpectedEndOfStream is raised when the transport ends without an
// end-of-stream marker for a table whose metadata was already seen.
func UnexpectedEndOfStream() *Error {
	return newErr(KindUnexpectedEndOfStream, CodeAborted, "Closed before receiving end-of-stream.")
}

// Protocolf builds a ProtocolError for malformed server message
// sequencing (duplicate table id, row-batch for unknown id, unknown
// column type).
func Protocolf(format string, args ...any) *Error {
	return newErr(KindProtocolError, CodeInternal, format, args...)
}

// Lifecyclef builds a LifecycleError for configuration calls made
// outside the configuring state, double subscriptions, or a
// synchronous Run with outstanding pull subscriptions.
func Lifecyclef(format string, args ...any) *Error {
	return newErr(KindLifecycleError, CodeFailedPrecondition, format, args...)
}

// Callback wraps an error returned from a user callback. Panics inside
// a callback are not recovered.
func Callback(cause error) *Error {
	return &Error{
		Kind:    KindCallbackError,
		Code:    CodeAborted,
		Msg:     cause.Error(),
		wrapped: cause,
	}
}

// Transport wraps an error surfaced by the underlying RPC stream.
func Transport(cause error) *Error {
	return &Error{
		Kind:    KindTransportError,
		Code:    CodeUnavailable,
		Msg:     cause.Error(),
		wrapped: cause,
	}
}

// As is a narrow helper over errors.As for *Error, for callers that
// don't want to declare their own local var.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
