package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read by Load. A double underscore
// separates nesting levels: JITCALC_COMPILER__PATH sets compiler.path.
const EnvPrefix = "JITCALC_"

// DefaultFiles are the config files looked for in the working directory.
var DefaultFiles = []string{"jitcalc.yaml", "jitcalc.yml"}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are command options, not configuration.
var flagKeys = map[string]string{
	"root":           "root",
	"compiler":       "compiler.path",
	"linker":         "linker.path",
	"interpreter":    "interpreter.path",
	"timeout":        "timeout",
	"max-signatures": "max_signatures",
	"history":        "history.path",
	"format":         "format",
	"verbose":        "verbose",
}

// listKeys hold string lists. Environment values for them are split on
// whitespace.
var listKeys = map[string]bool{
	"compiler.args":    true,
	"linker.args":      true,
	"interpreter.args": true,
	"driver.includes":  true,
}

// findConfigFile returns the explicit path, else the first default file that
// exists, else "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
// flags may be nil. Only flags the user actually set take part.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue maps JITCALC_DRIVER__RESULT_TYPE to driver.result_type.
func envValue(name, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		return key, strings.Fields(value)
	}
	return key, value
}
