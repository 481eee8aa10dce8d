package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative test case: one model file plus an ordered list
// of steps to run against it.
type Scenario struct {
	// Name uniquely identifies the scenario. It doubles as the golden
	// file name, so keep it filesystem-safe.
	Name string `yaml:"name"`

	// Description explains what behavior the scenario pins down.
	Description string `yaml:"description"`

	// Model is the path to the CUE model file, relative to the scenario
	// file unless absolute.
	Model string `yaml:"model"`

	// Steps run in order against a fresh engine.
	Steps []Step `yaml:"steps"`
}

// Step is a single scenario action. Exactly one of Eval, Set, Override, or
// RemoveOverride must be set; it names the node the step acts on.
type Step struct {
	// Eval evaluates the named identity.
	Eval string `yaml:"eval,omitempty"`

	// Set replaces the named variable's value. Requires Value.
	Set string `yaml:"set,omitempty"`

	// Override pins the named identity to Value.
	Override string `yaml:"override,omitempty"`

	// RemoveOverride clears the named identity's override.
	RemoveOverride string `yaml:"remove_override,omitempty"`

	// Args are identity arguments for Eval, Override, and RemoveOverride.
	// Scalars only; numbers parse per YAML (ints stay ints, so an
	// argument written 5 and one written 5.0 name different identities).
	Args []any `yaml:"args,omitempty"`

	// Value is the value for Set and Override steps.
	Value any `yaml:"value,omitempty"`

	// Expect, when present on an Eval step, is checked against the
	// evaluated value. Numbers compare with a small tolerance.
	Expect any `yaml:"expect,omitempty"`

	// ExpectError, when present on an Eval step, requires evaluation to
	// fail with an error containing this substring.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. The model path is
// resolved relative to the scenario file's directory. Unknown YAML fields
// are rejected so typos fail loudly instead of silently skipping a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); err != nil {
		return fmt.Errorf("model file not found: %s", s.Model)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	ops := 0
	for _, name := range []string{s.Eval, s.Set, s.Override, s.RemoveOverride} {
		if name != "" {
			ops++
		}
	}
	if ops != 1 {
		return fmt.Errorf("steps[%d]: exactly one of eval, set, override, remove_override is required", index)
	}

	switch {
	case s.Set != "":
		if s.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for set", index)
		}
		if len(s.Args) > 0 {
			return fmt.Errorf("steps[%d]: set takes no args (variables are unparameterized)", index)
		}
	case s.Override != "":
		if s.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for override", index)
		}
	}

	if s.Eval == "" {
		if s.Expect != nil {
			return fmt.Errorf("steps[%d]: expect is only valid on eval steps", index)
		}
		if s.ExpectError != "" {
			return fmt.Errorf("steps[%d]: expect_error is only valid on eval steps", index)
		}
	}
	if s.Expect != nil && s.ExpectError != "" {
		return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", index)
	}
	return nil
}
