package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one unit file, the
// expected check outcome, and optional assertions over the analysis
// metadata.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Unit is the path to the CUE unit file, relative to the scenario
	// file location.
	Unit string `yaml:"unit"`

	// Expect specifies the expected check outcome.
	Expect ExpectClause `yaml:"expect"`

	// Assertions validate diagnostics, effect closures, and scope
	// metadata beyond the expect clause.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected outcome of checking the unit.
type ExpectClause struct {
	// Clean is true when the unit must check without findings; false
	// means the unit must report at least one finding.
	Clean bool `yaml:"clean"`

	// Diagnostics lists findings that must be present. Subset match:
	// extra findings do not fail the expect clause, only assertions can.
	Diagnostics []ExpectedDiagnostic `yaml:"diagnostics,omitempty"`
}

// ExpectedDiagnostic identifies one required finding. Zero-valued
// fields are not matched.
type ExpectedDiagnostic struct {
	Code   string `yaml:"code"`
	Line   int    `yaml:"line,omitempty"`
	Column int    `yaml:"column,omitempty"`
	Grant  string `yaml:"grant,omitempty"`
}

// Assertion validates diagnostics or analysis metadata.
type Assertion struct {
	// Type specifies the assertion type:
	// - "diag_contains": a matching diagnostic was reported
	// - "diag_count": the code appears exactly Count times
	// - "effect_reachable": the effect closure contains the site
	// - "vault_block": the scope metadata records the safe block
	Type string `yaml:"type"`

	// Code is the error code (diag_contains, diag_count).
	Code string `yaml:"code,omitempty"`

	// Line and Column narrow diag_contains to a source position.
	Line   int `yaml:"line,omitempty"`
	Column int `yaml:"column,omitempty"`

	// MessageContains narrows diag_contains to a message substring.
	MessageContains string `yaml:"message_contains,omitempty"`

	// Count is the expected number of occurrences (diag_count).
	Count int `yaml:"count,omitempty"`

	// Function, Kind, and Target identify an effect site
	// (effect_reachable).
	Function string `yaml:"function,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Target   string `yaml:"target,omitempty"`

	// Block and Bindings identify a safe block and the exact set of
	// vault bindings live inside it (vault_block).
	Block    string   `yaml:"block,omitempty"`
	Bindings []string `yaml:"bindings,omitempty"`
}

// Assertion type constants.
const (
	AssertDiagContains    = "diag_contains"
	AssertDiagCount       = "diag_count"
	AssertEffectReachable = "effect_reachable"
	AssertVaultBlock      = "vault_block"
)

// LoadScenario reads and parses a scenario YAML file. The unit path is
// resolved relative to the scenario file. Returns an error if the file
// is malformed, contains unknown fields (typos), or is missing required
// fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Unit != "" && !filepath.IsAbs(scenario.Unit) {
		scenario.Unit = filepath.Join(filepath.Dir(path), scenario.Unit)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if _, err := os.Stat(s.Unit); os.IsNotExist(err) {
		return fmt.Errorf("unit file not found: %s", s.Unit)
	}

	if s.Expect.Clean && len(s.Expect.Diagnostics) > 0 {
		return fmt.Errorf("expect: clean scenarios cannot list diagnostics")
	}
	for i, d := range s.Expect.Diagnostics {
		if d.Code == "" {
			return fmt.Errorf("expect.diagnostics[%d]: code is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDiagContains:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diag_contains", index)
		}
	case AssertDiagCount:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diag_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for diag_count", index)
		}
	case AssertEffectReachable:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for effect_reachable", index)
		}
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for effect_reachable", index)
		}
	case AssertVaultBlock:
		if a.Block == "" {
			return fmt.Errorf("assertions[%d]: block is required for vault_block", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
