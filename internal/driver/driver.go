// Package driver synthesizes the translation unit that evaluates one
// expression against a module's signatures.
//
// A driver consists of the configured includes, one forward declaration per
// signature in extraction order, and an entry point that binds the
// expression to a typed result, prints it to standard output and exits
// successfully. The expression is inserted verbatim: it is trusted input,
// and type mismatches are left to the external compiler to report.
//
// Synthesis is a pure function of its inputs. Identical inputs produce
// byte-identical output.
package driver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/jitcalc/internal/extract"
)

// Defaults reproduce a C driver that prints an int result.
const (
	DefaultResultType   = "int"
	DefaultResultFormat = "%d"
	DefaultInclude      = "stdio.h"
)

// ResultName is the identifier of the result binding in the entry point.
const ResultName = "result"

// Options controls the entry point of a synthesized driver.
type Options struct {
	// ResultType is the declared type of the result binding.
	ResultType string

	// ResultFormat is the printf conversion used to print the result.
	ResultFormat string

	// Includes lists headers to include, in order. Bare names are wrapped
	// in angle brackets; names already quoted or bracketed are kept.
	Includes []string
}

// DefaultOptions returns the options of the reference behavior.
func DefaultOptions() Options {
	return Options{
		ResultType:   DefaultResultType,
		ResultFormat: DefaultResultFormat,
		Includes:     []string{DefaultInclude},
	}
}

// withDefaults fills empty fields. Includes are left alone: an explicitly
// empty list means no includes.
func (o Options) withDefaults() Options {
	if o.ResultType == "" {
		o.ResultType = DefaultResultType
	}
	if o.ResultFormat == "" {
		o.ResultFormat = DefaultResultFormat
	}
	return o
}

// Synthesize returns driver source for evaluating expression against the
// signatures in set.
func Synthesize(set extract.Set, expression string, opts Options) string {
	opts = opts.withDefaults()

	var b strings.Builder

	for _, inc := range opts.Includes {
		fmt.Fprintf(&b, "#include %s\n", includeTarget(inc))
	}
	b.WriteString("\n")

	for _, sig := range set {
		b.WriteString(sig.Declaration())
		b.WriteString("\n")
	}

	b.WriteString("\nint main() {\n")
	fmt.Fprintf(&b, "    %s %s = %s;\n", opts.ResultType, ResultName, expression)
	fmt.Fprintf(&b, "    printf(%s, %s);\n", strconv.Quote(opts.ResultFormat), ResultName)
	b.WriteString("    return 0;\n")
	b.WriteString("}\n")

	return b.String()
}

func includeTarget(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "<") || strings.HasPrefix(name, `"`) {
		return name
	}
	return "<" + name + ">"
}
