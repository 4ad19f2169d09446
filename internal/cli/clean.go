package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CleanResult is the JSON payload of a successful clean.
type CleanResult struct {
	Root  string `json:"root"`
	State string `json:"state"`
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the artifact directory",
		Long: `Remove every generated file and the artifact directory itself.

Cleaning an absent directory succeeds. A file that cannot be removed is
logged and skipped; failing to remove the directory is an error.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(rootOpts, cmd)
		},
	}

	return cmd
}

func runClean(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return reportError(formatter, "failed to open session", err)
	}
	defer ws.Close()

	if err := ws.sess.Clean(cmd.Context()); err != nil {
		return reportError(formatter, "clean failed", err)
	}

	if formatter.isJSON() {
		return formatter.Success(CleanResult{
			Root:  ws.sess.Root(),
			State: ws.sess.State().String(),
		})
	}

	fmt.Fprintln(formatter.Writer, "Cleaned generated files.")
	return nil
}
