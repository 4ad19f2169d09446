package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/jitcalc/internal/config"
	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/toolchain"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"

	// Config and Logger are set by the root command before any subcommand
	// runs. Subcommands built on their own fall back to defaults.
	Config *config.Config
	Logger *slog.Logger
}

func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	format := o.Format
	if format == "" {
		format = config.DefaultFormat
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// NewRootCommand creates the root command for the jitcalc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "jitcalc",
		Short: "jitcalc - evaluate expressions against a compiled C module",
		Long: `jitcalc compiles a module of C function definitions once, then evaluates
expressions that call those functions. Each expression is wrapped in a
synthesized driver, lowered to LLVM IR, linked against the module IR and
run by the interpreter.

Configuration is read from jitcalc.yaml (or --config), JITCALC_ environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			opts.Format = cfg.Format
			opts.Verbose = cfg.Verbose

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if cfg.File != "" {
				opts.Logger.Debug("loaded config file", "path", cfg.File)
			}
			return nil
		},
	}

	// Global flags. Values reach commands through the loaded Config, so only
	// the defaults shown in help are bound here.
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default: jitcalc.yaml if present)")
	flags.String("root", config.DefaultRoot, "artifact directory")
	flags.String("compiler", toolchain.DefaultCompiler.Path, "compiler lowering C to LLVM IR")
	flags.String("linker", toolchain.DefaultLinker.Path, "IR linker")
	flags.String("interpreter", toolchain.DefaultInterpreter.Path, "IR interpreter")
	flags.Duration("timeout", config.DefaultTimeout, "bound on each toolchain process (0 disables)")
	flags.Int("max-signatures", extract.DefaultMaxSignatures, "maximum function definitions per module")
	flags.String("history", "", "evaluation journal database (empty disables)")
	flags.String("format", config.DefaultFormat, "output format (json|text)")
	flags.BoolP("verbose", "v", false, "verbose output")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewEvaluateCommand(opts))
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewSignaturesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// usageArgs turns argument validation failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}
