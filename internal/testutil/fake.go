package testutil

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/roach88/jitcalc/internal/toolchain"
)

// LowerCall records one FakeLowerer invocation.
type LowerCall struct {
	Source string
	IR     string
}

// FakeLowerer is an in-process toolchain.Lowerer. It "lowers" a source file
// by copying it behind a one-line header, so the IR carries the source text.
//
// Any source containing FailOn fails with COMPILE_FAILED.
type FakeLowerer struct {
	FailOn string

	mu    sync.Mutex
	calls []LowerCall
}

// Lower implements toolchain.Lowerer.
func (f *FakeLowerer) Lower(ctx context.Context, sourcePath, irPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, LowerCall{Source: sourcePath, IR: irPath})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}

	if f.FailOn != "" && strings.Contains(string(data), f.FailOn) {
		return &toolchain.StageError{
			Code:       toolchain.ErrCodeCompileFailed,
			Stage:      toolchain.StageCompile,
			Command:    "fakecc " + sourcePath,
			Diagnostic: fmt.Sprintf("%s:1:1: error: unexpected %s", sourcePath, f.FailOn),
			ExitCode:   1,
		}
	}

	return os.WriteFile(irPath, append([]byte("; fake IR\n"), data...), 0o644)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeLowerer) Calls() []LowerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LowerCall(nil), f.calls...)
}

// LinkCall records one FakeLinker invocation.
type LinkCall struct {
	Inputs []string
	Linked string
}

var resultLine = regexp.MustCompile(`(?m)^\s*\S+ result = (.*);$`)

// FakeLinker is an in-process toolchain.LinkerExecutor. It concatenates its
// inputs into the linked path, finds the driver's result expression in the
// linked text and prints Results[expression].
//
// An expression missing from Results fails with EXECUTION_FAILED.
type FakeLinker struct {
	Results map[string]string

	mu    sync.Mutex
	calls []LinkCall
}

// NewFakeLinker returns a FakeLinker answering the given expressions.
func NewFakeLinker(results map[string]string) *FakeLinker {
	return &FakeLinker{Results: results}
}

// LinkAndRun implements toolchain.LinkerExecutor.
func (f *FakeLinker) LinkAndRun(ctx context.Context, irPaths []string, linkedPath string) (*toolchain.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, LinkCall{Inputs: append([]string(nil), irPaths...), Linked: linkedPath})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var linked strings.Builder
	for _, p := range irPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &toolchain.StageError{
				Code:     toolchain.ErrCodeLinkFailed,
				Stage:    toolchain.StageLink,
				Command:  "fakelink",
				ExitCode: 1,
				Err:      err,
			}
		}
		linked.Write(data)
	}
	if err := os.WriteFile(linkedPath, []byte(linked.String()), 0o644); err != nil {
		return nil, err
	}

	m := resultLine.FindStringSubmatch(linked.String())
	if m == nil {
		return nil, executionFailed("no result expression in linked module")
	}
	out, ok := f.Results[m[1]]
	if !ok {
		return nil, executionFailed(fmt.Sprintf("unknown expression %q", m[1]))
	}
	return &toolchain.Outcome{Output: out}, nil
}

// Calls returns a copy of the recorded invocations.
func (f *FakeLinker) Calls() []LinkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LinkCall(nil), f.calls...)
}

func executionFailed(diag string) error {
	return &toolchain.StageError{
		Code:       toolchain.ErrCodeExecutionFailed,
		Stage:      toolchain.StageExecute,
		Command:    "fakelli",
		Diagnostic: diag,
		ExitCode:   1,
	}
}

var (
	_ toolchain.Lowerer        = (*FakeLowerer)(nil)
	_ toolchain.LinkerExecutor = (*FakeLinker)(nil)
)
