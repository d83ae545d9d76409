package asyncstream

import (
	"errors"
	"fmt"
	"io"
)

// Code represents the high-level error taxonomy a caller can switch on
// without parsing the message string.
type Code string

const (
	CodeInvalidArgument Code = "invalid argument"
	CodeInvalidState    Code = "invalid state"
	CodeEndOfStream     Code = "end of stream"
	CodeParseError      Code = "parse error"
	CodeIOError         Code = "I/O error"
	CodeNoResponse      Code = "no response"
	CodeNoHost          Code = "no host"
	CodeHTTPSRequired   Code = "https required"
)

// Error is a structured stream error: the failing operation, its error
// code, a human message, and (optionally) the lower-level error it wraps.
type Error struct {
	Op    string // operation that failed, e.g. "SetPosition", "Read"
	Code  Code
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("asyncstream: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("asyncstream: %s", msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped inner error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is lets errors.Is(err, ErrEndOfStream) and friends work against a
// structured *Error, and also lets callers that only know about io.EOF
// compare a CodeEndOfStream error against it.
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	if target == io.EOF && e.Code == CodeEndOfStream {
		return true
	}
	return false
}

// NewError builds a structured error for the named operation.
func NewError(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps an arbitrary error under the named operation, mapping
// well-known sentinels (io.EOF, io.ErrUnexpectedEOF) onto the stream's own
// taxonomy so callers can use errors.Is/errors.As uniformly.
func WrapError(op string, inner error) error {
	if inner == nil {
		return nil
	}
	if ae, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ae.Code, Msg: ae.Msg, Inner: ae.Inner}
	}
	code := CodeIOError
	if errors.Is(inner, io.EOF) || errors.Is(inner, io.ErrUnexpectedEOF) {
		code = CodeEndOfStream
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// Sentinel errors for the common, locally-meaningful cases. Use
// errors.Is(err, ErrEndOfStream) etc. rather than comparing codes by hand.
var (
	// ErrEndOfStream signals a read, seek, or listen ran past the known
	// extent of the stream. errors.Is(err, io.EOF) is also true for this.
	ErrEndOfStream = &Error{Code: CodeEndOfStream, Msg: "end of stream"}

	// ErrInvalidArgument signals a malformed caller-supplied argument
	// (negative position, zero-length pattern, and so on).
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Msg: "invalid argument"}

	// ErrInvalidState signals an operation that conflicts with the
	// stream's current state: a second listen while one is in flight, a
	// call made after Close, re-opening an already-open stream.
	ErrInvalidState = &Error{Code: CodeInvalidState, Msg: "invalid state"}

	// ErrNotSupported signals a device that does not implement an
	// optional capability (in-place RemoveNBytes, accept, and so on).
	ErrNotSupported = &Error{Code: CodeIOError, Msg: "not supported by this device"}
)

// IsCode reports whether err carries the given Code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
