package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step operations.
const (
	OpCompile  = "compile"
	OpEvaluate = "evaluate"
	OpClean    = "clean"
)

// Session states as they appear in scenarios and traces.
const (
	StateCompiled      = "compiled"
	StateUninitialized = "uninitialized"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Module is the source compiled by compile steps.
	Module string `yaml:"module"`

	// Steps run in order against one session.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one session operation.
type Step struct {
	// Op is compile, evaluate or clean.
	Op string `yaml:"op"`

	// Expr is the expression to evaluate (evaluate only).
	Expr string `yaml:"expr,omitempty"`

	// Module replaces the scenario module before this compile.
	Module string `yaml:"module,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, no validation is performed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step's expected outcome.
type Expect struct {
	// Output is the expected evaluation output. Nil skips the check; an
	// empty string expects empty output.
	Output *string `yaml:"output,omitempty"`

	// Error is the expected error code. Empty expects success.
	Error string `yaml:"error,omitempty"`

	// State is the expected session state after the step.
	State string `yaml:"state,omitempty"`
}

// Assertion validates the trace or the final session.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Op selects steps (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Expr, Output and Error narrow trace_contains. Empty fields match anything.
	Expr   string `yaml:"expr,omitempty"`
	Output string `yaml:"output,omitempty"`
	Error  string `yaml:"error,omitempty"`

	// Count is the expected number of matching steps (trace_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected op order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// State is the expected final state (final_state).
	State string `yaml:"state,omitempty"`

	// Artifacts, if non-nil, is the exact set of artifact file names
	// expected at the end (final_state).
	Artifacts []string `yaml:"artifacts,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and step/assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}

	module := s.Module
	for i, step := range s.Steps {
		if step.Module != "" {
			module = step.Module
		}
		if err := validateStep(i, step, module); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step, module string) error {
	switch step.Op {
	case OpCompile:
		if module == "" {
			return fmt.Errorf("steps[%d]: compile needs a module (scenario or step)", index)
		}
	case OpEvaluate:
		if step.Expr == "" {
			return fmt.Errorf("steps[%d]: expr is required for evaluate", index)
		}
	case OpClean:
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Module != "" && step.Op != OpCompile {
		return fmt.Errorf("steps[%d]: module is only allowed on compile", index)
	}
	if step.Expr != "" && step.Op != OpEvaluate {
		return fmt.Errorf("steps[%d]: expr is only allowed on evaluate", index)
	}
	if step.Expect != nil && !validState(step.Expect.State) {
		return fmt.Errorf("steps[%d]: unknown state %q", index, step.Expect.State)
	}

	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if !validOp(a.Op) {
			return fmt.Errorf("assertions[%d]: valid op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
		for _, op := range a.Ops {
			if !validOp(op) {
				return fmt.Errorf("assertions[%d]: unknown op %q", index, op)
			}
		}
	case AssertTraceCount:
		if !validOp(a.Op) {
			return fmt.Errorf("assertions[%d]: valid op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.State == "" && a.Artifacts == nil {
			return fmt.Errorf("assertions[%d]: state or artifacts is required for final_state", index)
		}
		if !validState(a.State) {
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validOp(op string) bool {
	return op == OpCompile || op == OpEvaluate || op == OpClean
}

func validState(state string) bool {
	return state == "" || state == StateCompiled || state == StateUninitialized
}
