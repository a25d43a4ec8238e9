// Package errors provides structured error handling for rdfstream
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeNoParser is returned when no registered parser accepts a source
	ErrorTypeNoParser ErrorType = "no_parser"
	// ErrorTypeInconvertible represents values that could not reach the requested type
	ErrorTypeInconvertible ErrorType = "inconvertible"
	// ErrorTypeInterrupted represents a consumer request to stop all parsing
	ErrorTypeInterrupted ErrorType = "interrupted"
	// ErrorTypeParse represents failures raised by a parser
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeSource represents failures opening or normalizing a source
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeStorage represents storage backend errors
	ErrorTypeStorage ErrorType = "storage"
)

// ErrInterrupted is the control-flow signal requesting immediate cessation of
// all remaining parsing. It is never reported as a data error.
var ErrInterrupted = &Error{Type: ErrorTypeInterrupted, Message: "parsing interrupted"}

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches interrupt errors by type so wrapped interrupts still compare
// equal to ErrInterrupted.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrInterrupted {
		return e.Type == ErrorTypeInterrupted
	}
	return e == t
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsInterrupted reports whether err carries the interrupt signal anywhere in
// its chain.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// Join combines errors, dropping nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Interrupt returns an interrupt signal carrying cause for diagnostics.
func Interrupt(cause error) *Error {
	return &Error{Type: ErrorTypeInterrupted, Message: "parsing interrupted", Cause: cause}
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
