package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind classifies an error so callers can pick a recovery policy without
// string matching. The zero value means "unclassified".
type Kind string

const (
	KindAuth            Kind = "auth"
	KindRateLimit       Kind = "rate_limit"
	KindTransport       Kind = "transport"
	KindInvalidResponse Kind = "invalid_response"
	KindNotFound        Kind = "not_found"
	KindNotReadable     Kind = "not_readable"
	KindWrite           Kind = "write"
	KindTimeout         Kind = "timeout"
	KindExitCode        Kind = "exit_code"
	KindTurnLimit       Kind = "turn_limit"
	KindUnknownTool     Kind = "unknown_tool"
)

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", location(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", location(), fmt.Sprintf(format, a...), err)
}

// NewKind creates a classified error with file and line number information.
func NewKind(kind Kind, format string, a ...interface{}) error {
	return &kindError{
		kind: kind,
		err:  fmt.Errorf("[%s] %s", location(), fmt.Sprintf(format, a...)),
	}
}

// WrapKind classifies an existing error, adding context and file/line
// information. If the provided error is nil, WrapKind returns nil.
func WrapKind(kind Kind, err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return &kindError{
		kind: kind,
		err:  fmt.Errorf("[%s] %s: %w", location(), fmt.Sprintf(format, a...), err),
	}
}

// KindOf returns the classification of err, walking the wrap chain until it
// finds an error that carries a Kind. Unclassified errors return "".
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(interface{ Kind() Kind }); ok {
			return k.Kind()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Kind() Kind    { return e.kind }
func (e *kindError) Unwrap() error { return e.err }

func location() string {
	// Caller(2) skips location() and the errors constructor itself.
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
