// Package exception defines the error taxonomy shared by the generator packages.
// Every failure that crosses a package boundary is a *GenerationError carrying one
// of four kinds, so callers can branch with errors.Is against the kind sentinels.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies a GenerationError.
type Kind int

const (
	// KindUnknown is used for errors that were not produced by this package.
	KindUnknown Kind = iota
	// KindValidation marks malformed input. Nothing has been written.
	KindValidation
	// KindStorageWrite marks a failed read or write against the content store.
	KindStorageWrite
	// KindScheduling marks a continuation that could not be handed to the scheduler.
	KindScheduling
	// KindUnsupportedFastPath marks a bulk insert attempted on a non-transactional store.
	KindUnsupportedFastPath
)

// Sentinels matched by errors.Is for each kind.
var (
	ErrValidation          = errors.New("ValidationError")
	ErrStorageWrite        = errors.New("StorageWriteError")
	ErrScheduling          = errors.New("SchedulingError")
	ErrUnsupportedFastPath = errors.New("UnsupportedFastPathError")
)

// String returns the kind name.
func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "UnknownError"
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindStorageWrite:
		return ErrStorageWrite
	case KindScheduling:
		return ErrScheduling
	case KindUnsupportedFastPath:
		return ErrUnsupportedFastPath
	default:
		return nil
	}
}

// GenerationError is the error type returned by the generator packages.
type GenerationError struct {
	// Module is the component the error originated in (e.g. "coordinator", "occurrence").
	Module string
	// Message is a concise description of the failure.
	Message string
	// Kind classifies the error.
	Kind Kind
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// NewGenerationError creates a GenerationError of the given kind.
func NewGenerationError(kind Kind, module, message string, originalErr error) *GenerationError {
	return &GenerationError{
		Module:      module,
		Message:     message,
		Kind:        kind,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// NewGenerationErrorf creates a GenerationError with a formatted message.
// If the last argument is an error it becomes OriginalErr instead of a format operand.
func NewGenerationErrorf(kind Kind, module, format string, a ...interface{}) *GenerationError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewGenerationError(kind, module, fmt.Sprintf(format, args...), originalErr)
}

// NewValidationError creates a KindValidation error.
func NewValidationError(module, message string, originalErr error) *GenerationError {
	return NewGenerationError(KindValidation, module, message, originalErr)
}

// NewStorageWriteError creates a KindStorageWrite error.
func NewStorageWriteError(module, message string, originalErr error) *GenerationError {
	return NewGenerationError(KindStorageWrite, module, message, originalErr)
}

// NewSchedulingError creates a KindScheduling error.
func NewSchedulingError(module, message string, originalErr error) *GenerationError {
	return NewGenerationError(KindScheduling, module, message, originalErr)
}

// NewUnsupportedFastPathError creates a KindUnsupportedFastPath error.
func NewUnsupportedFastPathError(module, message string) *GenerationError {
	return NewGenerationError(KindUnsupportedFastPath, module, message, nil)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Kind, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Kind, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *GenerationError) Unwrap() error {
	return e.OriginalErr
}

// Is matches the sentinel of the error's kind.
func (e *GenerationError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the outermost GenerationError in err's chain.
func KindOf(err error) Kind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether a later attempt may succeed.
// Storage write failures are retryable; validation and fast-path support never change on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindStorageWrite, KindScheduling:
		return true
	case KindValidation, KindUnsupportedFastPath:
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF")
}

// ExtractErrorMessage returns the GenerationError message, or err.Error() for other errors.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}
