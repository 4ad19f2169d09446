package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/jitcalc/internal/config"
	"github.com/roach88/jitcalc/internal/session"
	"github.com/roach88/jitcalc/internal/toolchain"
)

// Process exit codes. Usage problems are distinguished from failures of the
// toolchain or the filesystem so scripts can tell "fix the command line"
// from "fix the module".
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the exit code a command fails with. Reported marks an
// error whose message the formatter already printed, so main stays quiet.
type ExitError struct {
	Code     int
	Message  string
	Err      error
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an unreported error with code.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches code and context to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no code
// are failures.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// exitCodeFor classifies a session or configuration error.
func exitCodeFor(err error) int {
	if session.IsUsageError(err) || config.IsValidationError(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as one JSON
// CLIResponse per line.
type OutputFormatter struct {
	Format string
	Writer io.Writer
	// ErrWriter receives text errors and verbose lines; nil means Writer.
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the envelope of every JSON line.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of a CLIResponse. Code is one of the session
// error codes, such as USAGE_ERROR or LINK_FAILED.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data. Text mode prints it with fmt's default format.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes one failure. Text goes to the error writer behind a red
// prefix, with details only when verbose. JSON goes to Writer so standard
// output stays one response per line.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("error:"), message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when verbose. It never touches
// Writer when ErrWriter is set, so JSON output is not interleaved.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// stageDetails is the JSON detail block of a toolchain failure.
type stageDetails struct {
	Stage      string `json:"stage"`
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// errorDetails returns structured context for err, or nil.
func errorDetails(err error) any {
	var stageErr *toolchain.StageError
	if errors.As(err, &stageErr) {
		return stageDetails{
			Stage:      string(stageErr.Stage),
			Command:    stageErr.Command,
			ExitCode:   stageErr.ExitCode,
			Diagnostic: stageErr.Diagnostic,
		}
	}
	var ioErr *session.IOError
	if errors.As(err, &ioErr) {
		return map[string]string{"op": ioErr.Op, "path": ioErr.Path}
	}
	return nil
}

// reportError writes err through the formatter and returns the ExitError the
// command should fail with.
func reportError(f *OutputFormatter, message string, err error) error {
	_ = f.Error(session.ErrorCode(err), err.Error(), errorDetails(err))
	return &ExitError{Code: exitCodeFor(err), Message: message, Err: err, Reported: true}
}

// successMark renders a green check mark.
func successMark() string {
	return color.New(color.FgGreen).Sprint("✓")
}

// failureMark renders a red cross.
func failureMark() string {
	return color.New(color.FgRed).Sprint("✗")
}
