package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end runner scenario.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Multisite and Tenant select the status scope.
	Multisite bool   `yaml:"multisite,omitempty"`
	Tenant    string `yaml:"tenant,omitempty"`

	// PersistRetries overrides the engine default when set.
	PersistRetries *int `yaml:"persist_retries,omitempty"`

	// Plugins are written under <workdir>/plugins.
	Plugins []PluginDef `yaml:"plugins"`

	// Status seeds the status mapping before the first step.
	Status map[string]bool `yaml:"status,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// PluginDef is one owner directory.
type PluginDef struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`

	// RI is the capability flag. Nil means true.
	RI *bool `yaml:"ri,omitempty"`

	// Units maps file names under ri/ to Starlark source.
	Units map[string]string `yaml:"units"`
}

// Step is one runner operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Arg is the instruction name or pattern for execute and set_status.
	Arg string `yaml:"arg,omitempty"`

	// Flag is the value written by set_status.
	Flag bool `yaml:"flag,omitempty"`

	// ExpectError names the error kind the step must fail with:
	// "execution", "conflict" or "load". Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpPreview    = "preview"
	OpPreviewAll = "preview_all"
	OpExecute    = "execute"
	OpExecuteAll = "execute_all"
	OpSetStatus  = "set_status"
)

// Expected error kinds.
const (
	ErrKindExecution = "execution"
	ErrKindConflict  = "conflict"
	ErrKindLoad      = "load"
)

// Assertion validates the final outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Names is used by executed, pending and invocation_order.
	Names []string `yaml:"names,omitempty"`

	// Name and Count are used by invocation_count.
	Name  string `yaml:"name,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Severity and Message are used by output_contains.
	Severity string `yaml:"severity,omitempty"`
	Message  string `yaml:"message,omitempty"`
}

// Assertion types.
const (
	AssertExecuted        = "executed"
	AssertPending         = "pending"
	AssertInvocationOrder = "invocation_order"
	AssertInvocationCount = "invocation_count"
	AssertOutputContains  = "output_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Multisite && s.Tenant == "" {
		return fmt.Errorf("tenant is required when multisite is set")
	}

	for i, p := range s.Plugins {
		if p.Key == "" || p.Name == "" {
			return fmt.Errorf("plugins[%d]: key and name are required", i)
		}
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpPreview, OpPreviewAll, OpExecuteAll:
		case OpExecute, OpSetStatus:
			if step.Arg == "" {
				return fmt.Errorf("steps[%d]: arg is required for %s", i, step.Op)
			}
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		switch step.ExpectError {
		case "", ErrKindExecution, ErrKindConflict, ErrKindLoad:
		default:
			return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertExecuted, AssertPending, AssertInvocationOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names is required for %s", index, a.Type)
		}
	case AssertInvocationCount:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for invocation_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertOutputContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for output_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
