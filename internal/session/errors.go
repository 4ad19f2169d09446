package session

import (
	"errors"
	"fmt"

	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/toolchain"
)

const (
	// ErrCodeUsage marks an operation invoked in the wrong state or with bad
	// arguments. Nothing was changed.
	ErrCodeUsage = "USAGE_ERROR"

	// ErrCodeIO marks a failed file operation.
	ErrCodeIO = "IO_ERROR"
)

// UsageError reports an operation that is not valid right now.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCodeUsage, e.Message)
}

// IOError reports a failed file operation with its path and cause.
type IOError struct {
	// Op describes what was being done, e.g. "copy module".
	Op string

	// Path is the file or directory involved.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrCodeIO, e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsUsageError returns true if err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsIOError returns true if err is or wraps an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// ErrorCode maps any error produced by a session operation to its code:
// USAGE_ERROR, IO_ERROR, EXTRACTION_OVERFLOW or one of the toolchain codes.
// Unclassified errors map to "ERROR"; nil maps to "".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUsageError(err):
		return ErrCodeUsage
	case extract.IsOverflow(err):
		return extract.ErrCodeOverflow
	case toolchain.Code(err) != "":
		return toolchain.Code(err)
	case IsIOError(err):
		return ErrCodeIO
	default:
		return "ERROR"
	}
}

func usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
