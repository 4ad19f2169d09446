package toolchain

import (
	"context"
	"log/slog"
	"time"
)

// Compiler lowers source files by running an external compiler as
// `path args... <source> -o <ir>`.
type Compiler struct {
	tool   Tool
	runner runner
}

// NewCompiler returns a Compiler for tool. A zero timeout waits forever.
func NewCompiler(tool Tool, timeout time.Duration, logger *slog.Logger) *Compiler {
	return &Compiler{tool: tool, runner: newRunner(timeout, logger)}
}

// Lower implements Lowerer.
func (c *Compiler) Lower(ctx context.Context, sourcePath, irPath string) error {
	_, _, err := c.runner.run(ctx, StageCompile, c.tool.argv(sourcePath, "-o", irPath))
	return err
}

// Linker links IR files with one external tool and interprets the linked
// module with another, without producing a native binary:
//
//	link:    path args... <ir...> -o <linked>
//	execute: path args... <linked>
type Linker struct {
	link        Tool
	interpreter Tool
	runner      runner
}

// NewLinker returns a Linker. The timeout bounds each of the two processes.
func NewLinker(link, interpreter Tool, timeout time.Duration, logger *slog.Logger) *Linker {
	return &Linker{link: link, interpreter: interpreter, runner: newRunner(timeout, logger)}
}

// LinkAndRun implements LinkerExecutor. Link failures and execution
// failures carry distinct codes.
func (l *Linker) LinkAndRun(ctx context.Context, irPaths []string, linkedPath string) (*Outcome, error) {
	if len(irPaths) == 0 {
		return nil, &StageError{
			Code:     ErrCodeLinkFailed,
			Stage:    StageLink,
			Command:  l.link.Path,
			ExitCode: -1,
			Err:      errNoInputs,
		}
	}

	start := time.Now()

	operands := append(append([]string{}, irPaths...), "-o", linkedPath)
	if _, _, err := l.runner.run(ctx, StageLink, l.link.argv(operands...)); err != nil {
		return nil, err
	}

	stdout, stderr, err := l.runner.run(ctx, StageExecute, l.interpreter.argv(linkedPath))
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Output:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
	}, nil
}

var (
	_ Lowerer        = (*Compiler)(nil)
	_ LinkerExecutor = (*Linker)(nil)
)
