package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/jitcalc/internal/driver"
	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/session"
	"github.com/roach88/jitcalc/internal/testutil"
	"github.com/roach88/jitcalc/internal/toolchain"
)

// Toolchain is what a scenario runs against.
type Toolchain struct {
	Lowerer       toolchain.Lowerer
	Linker        toolchain.LinkerExecutor
	MaxSignatures int
	Driver        driver.Options

	// Logger receives session logs. Nil discards them.
	Logger *slog.Logger
}

// Harness executes one scenario.
type Harness struct {
	sess       *session.Session
	modulePath string
	module     string
	steps      *testutil.StepCounter
	logger     *slog.Logger
}

// moduleFileName is the module file inside the scenario directory.
const moduleFileName = "module.c"

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory that is removed
// afterwards. An error is returned only when the scenario could not be run
// at all; step failures and unmet expectations are reported in the Result.
//
// Execution flow:
// 1. Create temporary directory and open a session rooted in it
// 2. Execute steps with expect validation
// 3. Capture final state and artifacts
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario, tc Toolchain) (*Result, error) {
	dir, err := os.MkdirTemp("", "jitcalc-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	logger := tc.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", scenario.Name)

	sess, err := session.Open(session.Options{
		Root:      filepath.Join(dir, "_generated"),
		Lowerer:   tc.Lowerer,
		Linker:    tc.Linker,
		Extractor: extract.NewScanner(tc.MaxSignatures),
		Driver:    tc.Driver,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	h := &Harness{
		sess:       sess,
		modulePath: filepath.Join(dir, moduleFileName),
		module:     scenario.Module,
		steps:      testutil.NewStepCounter(),
		logger:     logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	result.State = sess.State().String()
	result.Artifacts = presentArtifacts(sess.Layout())

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step, traces it and checks its expect clause.
// Only harness-side failures (writing the module file) are returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	var (
		output string
		opErr  error
	)

	switch step.Op {
	case OpCompile:
		if step.Module != "" {
			h.module = step.Module
		}
		if err := os.WriteFile(h.modulePath, []byte(h.module), 0o644); err != nil {
			return fmt.Errorf("write module: %w", err)
		}
		opErr = h.sess.Compile(ctx, h.modulePath)
	case OpEvaluate:
		output, opErr = h.sess.Evaluate(ctx, step.Expr)
	case OpClean:
		opErr = h.sess.Clean(ctx)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	event := TraceEvent{
		Seq:    h.steps.Next(),
		Op:     step.Op,
		Expr:   step.Expr,
		Output: output,
		Error:  session.ErrorCode(opErr),
		State:  h.sess.State().String(),
	}
	result.AddTrace(event)
	h.logger.Debug("step executed", "index", index, "op", step.Op, "error", event.Error)

	if step.Expect != nil {
		for _, msg := range checkExpect(index, step, event, opErr) {
			result.AddError(msg)
		}
	}
	return nil
}

// checkExpect compares a traced step with its expect clause.
func checkExpect(index int, step Step, event TraceEvent, opErr error) []string {
	var errs []string
	exp := step.Expect

	switch {
	case exp.Error == "" && event.Error != "":
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected success, got %v", index, step.Op, opErr))
	case exp.Error != "" && event.Error != exp.Error:
		actual := event.Error
		if actual == "" {
			actual = "success"
		}
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected error %s, got %s", index, step.Op, exp.Error, actual))
	}

	if exp.Output != nil && *exp.Output != event.Output {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected output %q, got %q", index, step.Op, *exp.Output, event.Output))
	}

	if exp.State != "" && exp.State != event.State {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: expected state %s, got %s", index, step.Op, exp.State, event.State))
	}

	return errs
}

// presentArtifacts returns the sorted names of artifact files on disk.
func presentArtifacts(layout session.Layout) []string {
	names := []string{}
	for _, p := range layout.Artifacts() {
		if _, err := os.Stat(p); err == nil {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names
}
