package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails. It carries the trace
// so the failure can be read without rerunning the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
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
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}
	return buf.String()
}

func assertCurrentNode(r *Result, a Assertion) error {
	if r.Node == a.Node {
		return nil
	}
	return &AssertionError{
		Type:     AssertCurrentNode,
		Expected: a.Node,
		Actual:   r.Node,
		Trace:    r.Trace,
	}
}

func assertHistory(r *Result, a Assertion) error {
	if slices.Equal(r.History, a.Nodes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistory,
		Expected: fmt.Sprintf("%v", a.Nodes),
		Actual:   fmt.Sprintf("%v", r.History),
		Trace:    r.Trace,
	}
}

func assertValue(r *Result, a Assertion) error {
	values, ok := r.State[a.Entity]
	if !ok {
		return &AssertionError{
			Type:     AssertValue,
			Expected: fmt.Sprintf("%s.%s = %d", a.Entity, a.Variable, *a.Equals),
			Actual:   fmt.Sprintf("unknown entity %q", a.Entity),
		}
	}
	got, ok := values[a.Variable]
	if !ok {
		return &AssertionError{
			Type:     AssertValue,
			Expected: fmt.Sprintf("%s.%s = %d", a.Entity, a.Variable, *a.Equals),
			Actual:   fmt.Sprintf("unknown variable %q", a.Variable),
		}
	}
	if got == *a.Equals {
		return nil
	}
	return &AssertionError{
		Type:     AssertValue,
		Expected: fmt.Sprintf("%s.%s = %d", a.Entity, a.Variable, *a.Equals),
		Actual:   fmt.Sprintf("%s.%s = %d", a.Entity, a.Variable, got),
		Trace:    r.Trace,
	}
}

func assertRule(r *Result, a Assertion) error {
	if _, ok := r.State[a.Entity][a.Variable]; !ok {
		return &AssertionError{
			Type:     AssertRule,
			Expected: fmt.Sprintf("%s.%s is %q", a.Entity, a.Variable, *a.Description),
			Actual:   fmt.Sprintf("unknown variable %s.%s", a.Entity, a.Variable),
		}
	}
	got := r.Rules[a.Entity][a.Variable]
	if got == *a.Description {
		return nil
	}
	return &AssertionError{
		Type:     AssertRule,
		Expected: fmt.Sprintf("%s.%s is %q", a.Entity, a.Variable, *a.Description),
		Actual:   fmt.Sprintf("%s.%s is %q", a.Entity, a.Variable, got),
		Trace:    r.Trace,
	}
}

func assertOutcome(r *Result, a Assertion) error {
	if slices.Equal(r.Outcomes, a.Outcomes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutcome,
		Expected: fmt.Sprintf("%v", a.Outcomes),
		Actual:   fmt.Sprintf("%v", r.Outcomes),
		Trace:    r.Trace,
	}
}

// EvaluateAssertions checks every assertion against a finished result and
// returns one message per failure. Malformed assertions count as failures.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := validateAssertion(i, a); err != nil {
			errs = append(errs, err.Error())
			continue
		}

		var err error
		switch a.Type {
		case AssertCurrentNode:
			err = assertCurrentNode(result, a)
		case AssertHistory:
			err = assertHistory(result, a)
		case AssertValue:
			err = assertValue(result, a)
		case AssertRule:
			err = assertRule(result, a)
		case AssertOutcome:
			err = assertOutcome(result, a)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
