package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// EvaluateResult is the JSON payload of one successful evaluation.
type EvaluateResult struct {
	Expression string `json:"expression"`
	Output     string `json:"output"`
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluate [expression]",
		Aliases: []string{"execute", "repl"},
		Short:   "Evaluate expressions against the compiled module",
		Long: `Evaluate C expressions that may call the functions of the compiled module.

With an expression argument, evaluate it once and exit. Without one, read
expressions from standard input one line at a time, printing ">> " before
each and the program output after it, until end of input. Errors are
printed and the loop continues.

Inside the loop, lines starting with a dot are commands:
  .help              Show the commands
  .signatures        List the signatures of the compiled module
  .driver <expr>     Print the driver for <expr> without running it
  .quit / .exit      Leave the loop

Exit codes (single expression):
  0 - Evaluated
  1 - Extraction, toolchain or I/O failure
  2 - Usage error (no compiled module, empty expression)

Examples:
  jitcalc evaluate "f(2, 3)"
  jitcalc evaluate
  echo "square(7)" | jitcalc evaluate`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runREPL(rootOpts, cmd)
			}
			return runEvaluate(rootOpts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runEvaluate(opts *RootOptions, expression string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return reportError(formatter, "failed to open session", err)
	}
	defer ws.Close()

	output, err := ws.sess.Evaluate(cmd.Context(), expression)
	if err != nil {
		return reportError(formatter, "evaluation failed", err)
	}

	writeOutput(formatter, expression, output)
	return nil
}

// writeOutput prints one evaluation result. Text output is echoed as the
// program wrote it, with a newline added if it lacks one.
func writeOutput(formatter *OutputFormatter, expression, output string) {
	if formatter.isJSON() {
		_ = formatter.Success(EvaluateResult{Expression: expression, Output: output})
		return
	}
	if output == "" {
		return
	}
	_, _ = formatter.Writer.Write([]byte(output))
	if !strings.HasSuffix(output, "\n") {
		_, _ = formatter.Writer.Write([]byte("\n"))
	}
}
