// Package toolchain wraps the external compiler and linker/interpreter.
//
// Two capability interfaces, Lowerer and LinkerExecutor, let the session
// controller run against fakes in tests. Compiler and Linker implement them
// with os/exec. Every invocation writes only to paths chosen by the caller,
// and nothing here ever deletes a file.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Lowerer compiles one source file to one intermediate-representation file.
type Lowerer interface {
	Lower(ctx context.Context, sourcePath, irPath string) error
}

// LinkerExecutor links IR files into linkedPath and interprets the result.
type LinkerExecutor interface {
	LinkAndRun(ctx context.Context, irPaths []string, linkedPath string) (*Outcome, error)
}

// Outcome is the result of a successful execution.
type Outcome struct {
	// Output is the program's captured standard output.
	Output string

	// Stderr is anything the program wrote to its error stream.
	Stderr string

	// Duration covers link and execution.
	Duration time.Duration
}

// Tool is an external program and the arguments placed before the
// per-invocation operands.
type Tool struct {
	Path string
	Args []string
}

func (t Tool) argv(operands ...string) []string {
	argv := make([]string, 0, 1+len(t.Args)+len(operands))
	argv = append(argv, t.Path)
	argv = append(argv, t.Args...)
	argv = append(argv, operands...)
	return argv
}

// Default tools match a clang/LLVM installation.
var (
	DefaultCompiler    = Tool{Path: "clang", Args: []string{"-S", "-emit-llvm"}}
	DefaultLinker      = Tool{Path: "llvm-link", Args: []string{"-S"}}
	DefaultInterpreter = Tool{Path: "lli"}
)

// runner executes one stage under an optional timeout.
type runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

func newRunner(timeout time.Duration, logger *slog.Logger) runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return runner{timeout: timeout, logger: logger}
}

// run executes argv, returning captured stdout and stderr. A failure of any
// kind is returned as a *StageError for stage.
func (r runner) run(ctx context.Context, stage Stage, argv []string) (string, string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	line := commandLine(argv)
	r.logger.Debug("running external tool", "stage", stage, "command", line)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		r.logger.Debug("external tool finished", "stage", stage, "duration", elapsed)
		return stdout.String(), stderr.String(), nil
	}

	se := &StageError{
		Code:       codeForStage(stage),
		Stage:      stage,
		Command:    line,
		Diagnostic: stderr.String(),
		ExitCode:   -1,
		Err:        err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		se.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		se.Code = ErrCodeTimeout
		se.ExitCode = -1
		se.Err = fmt.Errorf("no result after %s: %w", r.timeout, context.DeadlineExceeded)
	}

	r.logger.Debug("external tool failed",
		"stage", stage,
		"code", se.Code,
		"exit_code", se.ExitCode,
		"duration", elapsed,
	)
	return stdout.String(), stderr.String(), se
}

// commandLine renders argv for diagnostics, quoting operands with spaces.
func commandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
