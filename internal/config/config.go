// Package config loads jitcalc's configuration.
//
// Sources are layered with koanf, lowest precedence first: built-in
// defaults, the config file (jitcalc.yaml or --config), JITCALC_ environment
// variables, and finally command-line flags that were explicitly set. The
// merged result is validated against an embedded CUE schema.
package config

import (
	"time"

	"github.com/roach88/jitcalc/internal/driver"
	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/toolchain"
)

// ToolConfig names an external program and its leading arguments.
type ToolConfig struct {
	Path string   `koanf:"path" json:"path"`
	Args []string `koanf:"args" json:"args,omitempty"`
}

// Tool converts to the toolchain representation.
func (t ToolConfig) Tool() toolchain.Tool {
	return toolchain.Tool{Path: t.Path, Args: append([]string(nil), t.Args...)}
}

// DriverConfig shapes the synthesized entry point.
type DriverConfig struct {
	ResultType   string   `koanf:"result_type" json:"result_type"`
	ResultFormat string   `koanf:"result_format" json:"result_format"`
	Includes     []string `koanf:"includes" json:"includes,omitempty"`
}

// Options converts to driver.Options.
func (d DriverConfig) Options() driver.Options {
	return driver.Options{
		ResultType:   d.ResultType,
		ResultFormat: d.ResultFormat,
		Includes:     append([]string(nil), d.Includes...),
	}
}

// HistoryConfig configures the evaluation journal. An empty Path disables it.
type HistoryConfig struct {
	Path  string `koanf:"path" json:"path"`
	Limit int    `koanf:"limit" json:"limit"`
}

// Enabled reports whether a journal path is configured.
func (h HistoryConfig) Enabled() bool {
	return h.Path != ""
}

// Config holds every jitcalc setting.
type Config struct {
	Root          string        `koanf:"root" json:"root"`
	Compiler      ToolConfig    `koanf:"compiler" json:"compiler"`
	Linker        ToolConfig    `koanf:"linker" json:"linker"`
	Interpreter   ToolConfig    `koanf:"interpreter" json:"interpreter"`
	Timeout       time.Duration `koanf:"timeout" json:"timeout"`
	MaxSignatures int           `koanf:"max_signatures" json:"max_signatures"`
	Driver        DriverConfig  `koanf:"driver" json:"driver"`
	History       HistoryConfig `koanf:"history" json:"history"`
	Format        string        `koanf:"format" json:"format"`
	Verbose       bool          `koanf:"verbose" json:"verbose"`

	// File is the config file that was read, if any.
	File string `koanf:"-" json:"-"`
}

// Default configuration values. They reproduce a stock clang/LLVM setup
// writing to ./_generated.
const (
	DefaultRoot         = "_generated"
	DefaultTimeout      = 30 * time.Second
	DefaultHistoryLimit = 20
	DefaultFormat       = "text"
)

// defaults returns the lowest-precedence layer as a flat koanf map.
func defaults() map[string]any {
	return map[string]any{
		"root":                 DefaultRoot,
		"compiler.path":        toolchain.DefaultCompiler.Path,
		"compiler.args":        toolchain.DefaultCompiler.Args,
		"linker.path":          toolchain.DefaultLinker.Path,
		"linker.args":          toolchain.DefaultLinker.Args,
		"interpreter.path":     toolchain.DefaultInterpreter.Path,
		"interpreter.args":     []string{},
		"timeout":              DefaultTimeout.String(),
		"max_signatures":       extract.DefaultMaxSignatures,
		"driver.result_type":   driver.DefaultResultType,
		"driver.result_format": driver.DefaultResultFormat,
		"driver.includes":      []string{driver.DefaultInclude},
		"history.path":         "",
		"history.limit":        DefaultHistoryLimit,
		"format":               DefaultFormat,
		"verbose":              false,
	}
}

// Default returns the configuration used when no file, environment or flag
// overrides anything.
func Default() *Config {
	return &Config{
		Root:          DefaultRoot,
		Compiler:      ToolConfig{Path: toolchain.DefaultCompiler.Path, Args: append([]string(nil), toolchain.DefaultCompiler.Args...)},
		Linker:        ToolConfig{Path: toolchain.DefaultLinker.Path, Args: append([]string(nil), toolchain.DefaultLinker.Args...)},
		Interpreter:   ToolConfig{Path: toolchain.DefaultInterpreter.Path},
		Timeout:       DefaultTimeout,
		MaxSignatures: extract.DefaultMaxSignatures,
		Driver: DriverConfig{
			ResultType:   driver.DefaultResultType,
			ResultFormat: driver.DefaultResultFormat,
			Includes:     []string{driver.DefaultInclude},
		},
		History: HistoryConfig{Limit: DefaultHistoryLimit},
		Format:  DefaultFormat,
	}
}
