package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/jitcalc/internal/session"
)

// Prompt is printed before every expression the loop reads.
const Prompt = ">> "

// lineReader yields one input line per call and io.EOF at end of input.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// maxLineBytes bounds one piped input line, excluding its terminator.
const maxLineBytes = 1 << 20

// errLineTooLong is returned for a line over maxLineBytes. The rest of the
// line has been consumed, so the next Readline starts on the following one.
var errLineTooLong = fmt.Errorf("input line exceeds %d bytes", maxLineBytes)

// scanReader reads lines from a pipe or file, printing the prompt itself.
type scanReader struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

func newScanReader(in io.Reader, out io.Writer, prompt string) *scanReader {
	return &scanReader{in: bufio.NewReader(in), out: out, prompt: prompt}
}

func (r *scanReader) Readline() (string, error) {
	fmt.Fprint(r.out, r.prompt)

	var (
		line []byte
		n    int
	)
	for {
		chunk, err := r.in.ReadSlice('\n')
		n += len(chunk)
		// Keep one byte of slack for a "\r" before the newline.
		if n <= maxLineBytes+2 {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && n > 0 {
			break
		}
		if err != nil {
			return "", err
		}
		break
	}

	text := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")
	if n > maxLineBytes+2 || len(text) > maxLineBytes {
		return "", errLineTooLong
	}
	return text, nil
}

func (r *scanReader) Close() error { return nil }

// isTerminal reports whether in is an interactive terminal.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// repl is one interactive loop over an open workspace.
type repl struct {
	ws        *workspace
	formatter *OutputFormatter
	limit     int
}

func runREPL(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return reportError(formatter, "failed to open session", err)
	}
	defer ws.Close()

	r := &repl{ws: ws, formatter: formatter, limit: opts.config().History.Limit}

	var reader lineReader
	if isTerminal(cmd.InOrStdin()) {
		rl, err := r.newReadline(ctx, cmd)
		if err != nil {
			return fmt.Errorf("failed to initialize REPL: %w", err)
		}
		reader = rl

		fmt.Fprintf(cmd.OutOrStdout(), "jitcalc REPL (root: %s, state: %s)\n", ws.sess.Root(), ws.sess.State())
		fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	} else {
		// JSON output stays one response per line, so no prompt.
		prompt := Prompt
		if formatter.isJSON() {
			prompt = ""
		}
		reader = newScanReader(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	}
	defer func() { _ = reader.Close() }()

	return r.loop(ctx, reader)
}

// newReadline configures line editing with completion for dot-commands and
// module functions, and seeds the history from the journal.
func (r *repl) newReadline(ctx context.Context, cmd *cobra.Command) (*readline.Instance, error) {
	in, _ := cmd.InOrStdin().(*os.File)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		AutoComplete:    r.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           in,
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	if r.ws.journal != nil {
		exprs, err := r.ws.journal.Expressions(ctx, r.ws.sess.Root(), r.limit)
		if err != nil {
			r.formatter.VerboseLog("could not load history: %v", err)
		}
		for _, expr := range exprs {
			_ = rl.SaveHistory(expr)
		}
	}
	return rl, nil
}

func (r *repl) completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".signatures"),
		readline.PcItem(".driver"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	// Completion is best effort; an uncompiled session offers commands only.
	if set, err := r.ws.sess.Signatures(); err == nil {
		for _, name := range set.Names() {
			items = append(items, readline.PcItem(name+"("))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// loop reads until end of input or a quit command. Evaluation errors are
// printed and never end the loop.
func (r *repl) loop(ctx context.Context, reader lineReader) error {
	for {
		line, err := reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, errLineTooLong) {
			_ = reportError(r.formatter, "input rejected", &session.UsageError{Message: err.Error()})
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isDotCommand(line) {
			if quit := r.handleDotCommand(line); quit {
				break
			}
			continue
		}

		r.evaluate(ctx, line)
	}
	return nil
}

func (r *repl) evaluate(ctx context.Context, expression string) {
	output, err := r.ws.sess.Evaluate(ctx, expression)
	if err != nil {
		_ = reportError(r.formatter, "evaluation failed", err)
		return
	}
	writeOutput(r.formatter, expression, output)
}

// isDotCommand distinguishes ".help" from expressions such as ".5 * 2".
func isDotCommand(line string) bool {
	if len(line) < 2 || line[0] != '.' {
		return false
	}
	c := line[1]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// handleDotCommand runs one dot-command and reports whether the loop
// should end.
func (r *repl) handleDotCommand(line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	command = strings.ToLower(command)
	rest = strings.TrimSpace(rest)
	w := r.formatter.Writer

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(w)

	case ".signatures":
		set, err := r.ws.sess.Signatures()
		if err != nil {
			_ = reportError(r.formatter, "failed to list signatures", err)
			return false
		}
		printSignatures(w, set)

	case ".driver":
		if rest == "" {
			fmt.Fprintln(r.formatter.GetErrWriter(), "Usage: .driver <expression>")
			return false
		}
		src, err := r.ws.sess.Driver(rest)
		if err != nil {
			_ = reportError(r.formatter, "failed to synthesize driver", err)
			return false
		}
		fmt.Fprint(w, src)

	default:
		fmt.Fprintf(r.formatter.GetErrWriter(), "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .signatures        List the signatures of the compiled module
  .driver <expr>     Print the driver for <expr> without running it
  .quit / .exit      Exit the REPL

Any other line is evaluated as a C expression, e.g. f(2, 3).
`
	fmt.Fprintln(w, help)
}
