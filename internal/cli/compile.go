package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CompileResult is the JSON payload of a successful compile.
type CompileResult struct {
	Module string `json:"module"`
	Root   string `json:"root"`
	State  string `json:"state"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <module-file>",
		Short: "Copy a module into the artifact directory and lower it to IR",
		Long: `Copy a C module into the artifact directory and lower it to LLVM IR.

The copy, not the original file, is what later evaluations read. A failed
compile leaves the session uninitialized.

Exit codes:
  0 - Module compiled
  1 - Compiler failure or I/O error
  2 - Usage error

Examples:
  jitcalc compile math.c
  jitcalc compile math.c --root /tmp/jit --compiler clang-18`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCompile(opts *RootOptions, modulePath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return reportError(formatter, "failed to open session", err)
	}
	defer ws.Close()

	formatter.VerboseLog("Compiling %s into %s", modulePath, ws.sess.Root())

	if err := ws.sess.Compile(cmd.Context(), modulePath); err != nil {
		return reportError(formatter, "compile failed", err)
	}

	if formatter.isJSON() {
		return formatter.Success(CompileResult{
			Module: modulePath,
			Root:   ws.sess.Root(),
			State:  ws.sess.State().String(),
		})
	}

	fmt.Fprintf(formatter.Writer, "%s Compiled %s into %s\n", successMark(), modulePath, ws.sess.Root())
	return nil
}
