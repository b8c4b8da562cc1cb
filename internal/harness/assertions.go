package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ri/internal/engine"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Invoked  []string // Invocation order for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nInvocations:\n")
	for i, name := range e.Invoked {
		fmt.Fprintf(&buf, "  [%d] %s()\n", i+1, name)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var msgs []string
	for _, a := range assertions {
		if err := evaluate(r, a); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluate(r *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Invoked: r.Invocations()}
	}

	switch a.Type {
	case AssertExecuted, AssertPending:
		want := a.Type == AssertExecuted
		for _, name := range a.Names {
			if r.Status.Executed(name) != want {
				return fail(fmt.Sprintf("%s() %s", name, a.Type), fmt.Sprintf("status is %t", !want))
			}
		}
	case AssertInvocationOrder:
		if err := assertOrder(r.Invocations(), a.Names); err != "" {
			return fail(fmt.Sprintf("invocations in order %v", a.Names), err)
		}
	case AssertInvocationCount:
		n := 0
		for _, name := range r.Invocations() {
			if name == a.Name {
				n++
			}
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%s() invoked %d time(s)", a.Name, a.Count), fmt.Sprintf("invoked %d time(s)", n))
		}
	case AssertOutputContains:
		for _, l := range r.Lines() {
			if (a.Severity == "" || engine.Severity(a.Severity) == l.Severity) && strings.Contains(l.Message, a.Message) {
				return nil
			}
		}
		return fail(fmt.Sprintf("output line [%s] containing %q", a.Severity, a.Message), "not found")
	default:
		return fail("known assertion type", a.Type)
	}
	return nil
}

// assertOrder checks that want appears in got as a subsequence.
// Returns a description of the mismatch, or "".
func assertOrder(got, want []string) string {
	i := 0
	for _, name := range got {
		if i < len(want) && name == want[i] {
			i++
		}
	}
	if i == len(want) {
		return ""
	}
	if !slices.Contains(got, want[i]) {
		return fmt.Sprintf("%s() never invoked", want[i])
	}
	return fmt.Sprintf("%s() invoked out of order: %v", want[i], got)
}
