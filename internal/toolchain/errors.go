package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names a step of the external toolchain.
type Stage string

const (
	StageCompile Stage = "compile"
	StageLink    Stage = "link"
	StageExecute Stage = "execute"
)

// Error codes reported by StageError.
const (
	ErrCodeCompileFailed   = "COMPILE_FAILED"
	ErrCodeLinkFailed      = "LINK_FAILED"
	ErrCodeExecutionFailed = "EXECUTION_FAILED"
	ErrCodeTimeout         = "TOOLCHAIN_TIMEOUT"
)

// StageError reports a failed external process.
//
// Code distinguishes which stage failed, or that the bounded wait expired.
// A timed-out stage may have left its output file partially written.
type StageError struct {
	// Code is one of the ErrCode constants.
	Code string

	// Stage is the step that was running.
	Stage Stage

	// Command is the invoked command line.
	Command string

	// Diagnostic is the tool's captured error stream.
	Diagnostic string

	// ExitCode is the process exit status, or -1 if it never exited normally.
	ExitCode int

	// Err is the underlying cause.
	Err error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s stage: %q", e.Code, e.Stage, e.Command)
	switch {
	case e.Code == ErrCodeTimeout:
		b.WriteString(" did not finish in time")
	case e.ExitCode >= 0:
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	case e.Err != nil:
		fmt.Fprintf(&b, " failed: %v", e.Err)
	}
	if diag := strings.TrimSpace(e.Diagnostic); diag != "" {
		b.WriteString("\n")
		b.WriteString(diag)
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// codeForStage maps a stage to its failure code.
func codeForStage(stage Stage) string {
	switch stage {
	case StageCompile:
		return ErrCodeCompileFailed
	case StageLink:
		return ErrCodeLinkFailed
	default:
		return ErrCodeExecutionFailed
	}
}

// Code returns the StageError code carried by err, or "".
func Code(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCompileFailed reports whether err is a compile stage failure.
func IsCompileFailed(err error) bool { return Code(err) == ErrCodeCompileFailed }

// IsLinkFailed reports whether err is a link stage failure.
func IsLinkFailed(err error) bool { return Code(err) == ErrCodeLinkFailed }

// IsExecutionFailed reports whether err is an execution stage failure.
func IsExecutionFailed(err error) bool { return Code(err) == ErrCodeExecutionFailed }

// IsTimeout reports whether err is an expired bounded wait.
func IsTimeout(err error) bool { return Code(err) == ErrCodeTimeout }

var errNoInputs = errors.New("no intermediate-representation files to link")
