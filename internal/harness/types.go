package harness

import (
	"github.com/roach88/ri/internal/engine"
	"github.com/roach88/ri/internal/ir"
)

// StepResult is the captured output of one step.
type StepResult struct {
	Op    string        `json:"op"`
	Arg   string        `json:"arg,omitempty"`
	Lines []engine.Line `json:"lines,omitempty"`

	// Error is the kind of error the step returned, if any.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// History is every recorded runSingle attempt, oldest first.
	History []ir.Execution `json:"history"`

	// Status is the final status mapping of the scenario's scope.
	Status ir.Status `json:"status"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Invocations returns the names whose callable was invoked, in order.
// Missing instructions are not invocations.
func (r *Result) Invocations() []string {
	var out []string
	for _, e := range r.History {
		if e.Outcome != ir.OutcomeMissing {
			out = append(out, e.Name)
		}
	}
	return out
}

// Lines returns every output line of every step, in order.
func (r *Result) Lines() []engine.Line {
	var out []engine.Line
	for _, s := range r.Steps {
		out = append(out, s.Lines...)
	}
	return out
}
