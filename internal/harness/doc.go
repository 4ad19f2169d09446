// Package harness runs session scenarios: scripted sequences of compile,
// evaluate and clean against a real or fake toolchain.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: add_two_numbers
//	description: "What this scenario validates"
//	module: |
//	  int f(int a, int b) { return a + b; }
//	steps:
//	  - op: evaluate
//	    expr: f(2,3)
//	    expect:
//	      error: USAGE_ERROR
//	  - op: compile
//	    expect: { state: compiled }
//	  - op: evaluate
//	    expr: f(2,3)
//	    expect: { output: "5" }
//	  - op: clean
//	assertions:
//	  - type: trace_count
//	    op: evaluate
//	    count: 2
//	  - type: final_state
//	    state: uninitialized
//
// A compile step may carry its own module text, replacing the scenario's
// module from that step on.
//
// # Assertion Types
//
//   - trace_contains: some step matches op and any of expr, output, error given
//   - trace_order: the listed ops appear in this order
//   - trace_count: op appears exactly count times
//   - final_state: the session ends in state, with exactly the listed artifacts
//
// # Deterministic Traces
//
// Every scenario runs in a fresh temporary directory with its own session
// root. Trace events are numbered by testutil.StepCounter and carry
// error codes rather than messages, so a trace never mentions a temporary
// path and can be compared byte for byte against a golden file.
package harness
