package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Op)
			if event.Expr != "" {
				fmt.Fprintf(&buf, " %q", event.Expr)
			}
			if event.Error != "" {
				fmt.Fprintf(&buf, " -> %s", event.Error)
			} else if event.Output != "" {
				fmt.Fprintf(&buf, " -> %q", event.Output)
			}
			fmt.Fprintf(&buf, " (%s)\n", event.State)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that some step matches op and every non-empty
// field of the assertion.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Op != a.Op {
			continue
		}
		if a.Expr != "" && event.Expr != a.Expr {
			continue
		}
		if a.Output != "" && event.Output != a.Output {
			continue
		}
		if a.Error != "" && event.Error != a.Error {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeMatch(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func describeMatch(a Assertion) string {
	parts := []string{a.Op}
	if a.Expr != "" {
		parts = append(parts, fmt.Sprintf("expr=%q", a.Expr))
	}
	if a.Output != "" {
		parts = append(parts, fmt.Sprintf("output=%q", a.Output))
	}
	if a.Error != "" {
		parts = append(parts, "error="+a.Error)
	}
	return strings.Join(parts, " ")
}

// assertTraceOrder checks that the ops appear in order. Steps need not be
// consecutive and each expected op consumes the first match after the
// previous one.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, want := range a.Ops {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Op == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual:   fmt.Sprintf("no %s after position %d", want, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that op appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the session state and artifact set at the end.
func assertFinalState(result *Result, a Assertion) error {
	if a.State != "" && a.State != result.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "state " + a.State,
			Actual:   "state " + result.State,
			Trace:    result.Trace,
		}
	}

	if a.Artifacts != nil {
		want := slices.Clone(a.Artifacts)
		sort.Strings(want)
		if !slices.Equal(want, result.Artifacts) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("artifacts %v", want),
				Actual:   fmt.Sprintf("artifacts %v", result.Artifacts),
			}
		}
	}
	return nil
}
