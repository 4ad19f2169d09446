package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/session"
)

// SignatureInfo is the JSON form of one extracted signature.
type SignatureInfo struct {
	Name        string `json:"name"`
	Declaration string `json:"declaration"`
	Offset      int    `json:"offset"`
	Line        int    `json:"line"`
}

// NewSignaturesCommand creates the signatures command.
func NewSignaturesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "List the function signatures of the compiled module",
		Long: `List the signatures extracted from the module copy in the artifact
directory, in source order. These are the declarations every driver
starts with.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignatures(rootOpts, cmd)
		},
	}

	return cmd
}

func runSignatures(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return reportError(formatter, "failed to open session", err)
	}
	defer ws.Close()

	set, err := ws.sess.Signatures()
	if err != nil {
		return reportError(formatter, "failed to list signatures", err)
	}

	if formatter.isJSON() {
		src, err := os.ReadFile(ws.sess.Layout().ModuleSource())
		if err != nil {
			return reportError(formatter, "failed to list signatures",
				&session.IOError{Op: "read module copy", Path: ws.sess.Layout().ModuleSource(), Err: err})
		}
		infos := make([]SignatureInfo, len(set))
		for i, sig := range set {
			infos[i] = SignatureInfo{
				Name:        sig.Name,
				Declaration: sig.Declaration(),
				Offset:      sig.Offset,
				Line:        sig.Line(string(src)),
			}
		}
		return formatter.Success(infos)
	}

	printSignatures(formatter.Writer, set)
	return nil
}

func printSignatures(w io.Writer, set extract.Set) {
	if len(set) == 0 {
		fmt.Fprintln(w, "(no function definitions)")
		return
	}
	for _, sig := range set {
		fmt.Fprintln(w, sig.Declaration())
	}
}
