package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/jitcalc/internal/history"
	"github.com/roach88/jitcalc/internal/session"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int // rows to show; 0 uses history.limit
	All   bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the evaluation journal for the artifact directory",
		Long: `Show recorded compile, evaluate and clean operations for the configured
root, newest first. Requires history.path (or --history) to be set.

Examples:
  jitcalc history --history ~/.jitcalc/history.db
  jitcalc history --limit 5 --format json`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "number of entries to show (default history.limit)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "show every entry")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.config()

	if !cfg.History.Enabled() {
		_ = formatter.Error(session.ErrCodeUsage, "history is disabled: set history.path or pass --history", nil)
		return &ExitError{Code: ExitCommandError, Message: "history is disabled", Reported: true}
	}

	journal, err := openJournal(cfg.History.Path)
	if err != nil {
		_ = formatter.Error(session.ErrCodeIO, err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "failed to open journal", Err: err, Reported: true}
	}
	defer journal.Close()

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to resolve root", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = cfg.History.Limit
	}
	if opts.All {
		limit = 0
	}

	events, err := journal.Recent(cmd.Context(), root, limit)
	if err != nil {
		_ = formatter.Error(session.ErrCodeIO, err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "failed to read journal", Err: err, Reported: true}
	}

	if formatter.isJSON() {
		return formatter.Success(events)
	}

	renderHistory(formatter.Writer, events)
	return nil
}

func renderHistory(w io.Writer, events []history.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "(no history)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Seq", "Kind", "Expression", "Result", "Time"})

	for _, e := range events {
		t.AppendRow(table.Row{
			e.Seq,
			string(e.Kind),
			e.Expression,
			eventResult(e),
			e.Timestamp.Local().Format(time.DateTime),
		})
	}
	t.Render()
}

// eventResult is the output of a successful evaluation, the error code of a
// failed operation, or "ok".
func eventResult(e history.Event) string {
	switch {
	case e.Failed():
		return e.ErrorCode
	case e.Kind == history.KindEvaluate:
		return strings.TrimRight(e.Output, "\n")
	default:
		return "ok"
	}
}
