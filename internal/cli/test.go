package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/jitcalc/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string // glob over scenario file names
	Jobs   int
}

// ScenarioResult is the verdict on one scenario file.
type ScenarioResult struct {
	Name          string   `json:"name"`
	File          string   `json:"file"`
	Pass          bool     `json:"pass"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// TestResult is the verdict on a whole scenarios directory.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run session scenarios against the configured toolchain",
		Long: `Run YAML session scenarios against the configured toolchain.

Each scenario compiles its module, evaluates expressions and cleans in a
fresh temporary artifact directory, checking every step's expect clause and
the final assertions. When golden/<name>.golden exists next to the scenario,
the recorded trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  jitcalc test ./scenarios
  jitcalc test ./scenarios --filter "overflow-*"
  jitcalc test ./scenarios --update
  jitcalc test ./scenarios --jobs 4 --format json`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 1, "number of scenarios to run concurrently")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--jobs must be at least 1, got %d", opts.Jobs))
	}
	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	formatter := opts.formatter(cmd)
	if len(files) == 0 && !formatter.isJSON() {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	// Scenarios run in their own temporary roots, so any number may run at
	// once. Results are stored by index to keep file order.
	tc := buildToolchain(opts.config(), opts.logger())
	result := TestResult{Scenarios: make([]ScenarioResult, len(files)), Total: len(files)}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.Jobs)
	for i, file := range files {
		g.Go(func() error {
			result.Scenarios[i] = runScenario(ctx, file, tc, opts.Update)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range result.Scenarios {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.isJSON() {
		err = writeTestJSON(formatter.Writer, result)
	} else {
		writeTestText(formatter.Writer, result)
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed), Reported: true}
	}
	return nil
}

// findScenarioFiles lists the .yaml and .yml files under dir in lexical
// order. A non-empty filter is a glob matched against the file name
// without its extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, runs and golden-checks one scenario file. Every
// problem, including a file that does not load, becomes a failed result.
func runScenario(ctx context.Context, file string, tc harness.Toolchain, update bool) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		res.Errors = append([]string{fmt.Sprintf(format, args...)}, res.Errors...)
		res.Pass = false
		return res
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	res.Name = scenario.Name

	run, err := harness.Run(ctx, scenario, tc)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	res.Pass = run.Pass
	res.Errors = run.Errors

	golden := harness.GoldenPath(file)
	if update {
		if err := harness.UpdateGolden(golden, scenario.Name, run); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		res.GoldenUpdated = true
		return res
	}

	// A scenario without a golden file is judged by its expectations alone.
	if _, err := os.Stat(golden); err != nil {
		return res
	}
	match, err := harness.CompareGolden(golden, scenario.Name, run)
	if err != nil {
		return fail("golden comparison failed: %v", err)
	}
	if !match {
		return fail("Golden file mismatch (run with --update to regenerate)")
	}
	return res
}

func writeTestJSON(w io.Writer, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func writeTestText(w io.Writer, result TestResult) {
	for _, r := range result.Scenarios {
		switch {
		case !r.Pass:
			fmt.Fprintf(w, "%s %s\n", failureMark(), r.Name)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		case r.GoldenUpdated:
			fmt.Fprintf(w, "%s %s (golden updated)\n", successMark(), r.Name)
		default:
			fmt.Fprintf(w, "%s %s\n", successMark(), r.Name)
		}
	}

	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintf(w, "%s All scenarios passed\n", successMark())
	}
}
