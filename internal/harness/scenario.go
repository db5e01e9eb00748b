package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifest is the service manifest, inline.
	Manifest map[string]any `yaml:"manifest"`

	// Platform is the platform config, inline, in the same shape as
	// shinobi.platform.yaml. Omit it to run with an empty config.
	Platform map[string]any `yaml:"platform,omitempty"`

	// Patches is patches.cue source. Omit it to run without patches.
	Patches string `yaml:"patches,omitempty"`

	// Expect is the outcome of the run.
	Expect Expect `yaml:"expect"`

	// Assertions validate the result of a successful run, or the trace of
	// a failed one.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID fixes the run ID. Defaults to "run-test".
	RunID string `yaml:"run_id,omitempty"`
}

// Outcomes accepted by Expect.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Expect describes how a run ends.
type Expect struct {
	// Outcome is "success" or "failure".
	Outcome string `yaml:"outcome"`

	// Code is the expected error code. Required for failures.
	Code string `yaml:"code,omitempty"`

	// Phase and Component, when set, must match the failing phase and
	// component.
	Phase     string `yaml:"phase,omitempty"`
	Component string `yaml:"component,omitempty"`
}

// Assertion validates part of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "binding_exists": a binding source -> target for capability ran,
	//   optionally with the given strategy
	// - "binding_count": exactly Count bindings ran
	// - "construct_exists": the stack holds Construct
	// - "construct_property": Construct has Value at the dotted Path
	// - "construct_tag": Construct carries tag Key with Value
	// - "warning_logged": a warning containing Message was logged
	Type string `yaml:"type"`

	Source     string `yaml:"source,omitempty"`
	Target     string `yaml:"target,omitempty"`
	Capability string `yaml:"capability,omitempty"`
	Strategy   string `yaml:"strategy,omitempty"`

	Construct string `yaml:"construct,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Value     any    `yaml:"value,omitempty"`

	Message string `yaml:"message,omitempty"`
	Count   int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBindingExists     = "binding_exists"
	AssertBindingCount      = "binding_count"
	AssertConstructExists   = "construct_exists"
	AssertConstructProperty = "construct_property"
	AssertConstructTag      = "construct_tag"
	AssertWarningLogged     = "warning_logged"
)

var assertionTypes = []string{
	AssertBindingExists,
	AssertBindingCount,
	AssertConstructExists,
	AssertConstructProperty,
	AssertConstructTag,
	AssertWarningLogged,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so "assertion:" vs "assertions:" typos surface.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Manifest) == 0 {
		return fmt.Errorf("manifest is required")
	}

	switch s.Expect.Outcome {
	case OutcomeSuccess:
		if s.Expect.Code != "" {
			return fmt.Errorf("expect.code is only valid for failures")
		}
	case OutcomeFailure:
		if s.Expect.Code == "" {
			return fmt.Errorf("expect.code is required for failures")
		}
	default:
		return fmt.Errorf("expect.outcome must be %q or %q, got %q", OutcomeSuccess, OutcomeFailure, s.Expect.Outcome)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	if !slices.Contains(assertionTypes, a.Type) {
		return fmt.Errorf("unknown type %q", a.Type)
	}
	switch a.Type {
	case AssertBindingExists:
		if a.Source == "" || a.Target == "" || a.Capability == "" {
			return fmt.Errorf("%s requires source, target and capability", a.Type)
		}
	case AssertConstructExists:
		if a.Construct == "" {
			return fmt.Errorf("%s requires construct", a.Type)
		}
	case AssertConstructProperty:
		if a.Construct == "" || a.Path == "" {
			return fmt.Errorf("%s requires construct and path", a.Type)
		}
	case AssertConstructTag:
		if a.Construct == "" || a.Key == "" {
			return fmt.Errorf("%s requires construct and key", a.Type)
		}
	case AssertWarningLogged:
		if a.Message == "" {
			return fmt.Errorf("%s requires message", a.Type)
		}
	}
	return nil
}
