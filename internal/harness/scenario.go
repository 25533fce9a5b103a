package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// InitialDefault selects the default buffer as a scenario's starting state.
const InitialDefault = "default"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the buffer loaded before the first step.
	// Empty or "default" loads the default source with no records.
	Initial string `yaml:"initial,omitempty"`

	// Steps run in order against one tracker.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one tracker operation. Exactly one of Admit, Replace, Exists,
// Count is set.
type Step struct {
	// Admit is a record host value, converted field by field.
	Admit map[string]interface{} `yaml:"admit,omitempty"`

	// Replace is a buffer passed to ReplaceAll.
	Replace *string `yaml:"replace,omitempty"`

	// Exists queries one identity.
	Exists *ExistsQuery `yaml:"exists,omitempty"`

	// Count compares collection sizes.
	Count *CountQuery `yaml:"count,omitempty"`

	// Expect is the expected boolean outcome of admit or exists.
	Expect *bool `yaml:"expect,omitempty"`
}

// ExistsQuery is the argument of an exists step.
type ExistsQuery struct {
	NovelID   string `yaml:"novel_id"`
	SourceURL string `yaml:"source_url"`
}

// CountQuery is the expected sizes for a count step.
type CountQuery struct {
	Sources int `yaml:"sources"`
	Records int `yaml:"records"`
}

// op names the operation the step performs, or "" when it sets none or
// more than one.
func (s Step) op() string {
	var ops []string
	if s.Admit != nil {
		ops = append(ops, OpAdmit)
	}
	if s.Replace != nil {
		ops = append(ops, OpReplace)
	}
	if s.Exists != nil {
		ops = append(ops, OpExists)
	}
	if s.Count != nil {
		ops = append(ops, OpCount)
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// NovelID and SourceURL identify a record (record_present, record_absent).
	NovelID   string `yaml:"novel_id,omitempty"`
	SourceURL string `yaml:"source_url,omitempty"`

	// Where selects a record by field equality (record_fields).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (record_fields).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// NovelIDs is the expected record order (record_order).
	NovelIDs []string `yaml:"novel_ids,omitempty"`

	// Names is the expected source order (source_names).
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordPresent = "record_present"
	AssertRecordAbsent  = "record_absent"
	AssertRecordFields  = "record_fields"
	AssertRecordOrder   = "record_order"
	AssertSourceNames   = "source_names"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

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

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
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

	for i, step := range s.Steps {
		op := step.op()
		if op == "" {
			return fmt.Errorf("steps[%d]: exactly one of admit, replace, exists, count is required", i)
		}
		if step.Expect != nil && op != OpAdmit && op != OpExists {
			return fmt.Errorf("steps[%d]: expect is only valid for admit and exists", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
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
	case AssertRecordPresent, AssertRecordAbsent:
		if a.NovelID == "" || a.SourceURL == "" {
			return fmt.Errorf("assertions[%d]: novel_id and source_url are required for %s", index, a.Type)
		}
	case AssertRecordFields:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for record_fields", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record_fields", index)
		}
	case AssertRecordOrder:
		if a.NovelIDs == nil {
			return fmt.Errorf("assertions[%d]: novel_ids is required for record_order", index)
		}
	case AssertSourceNames:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names is required for source_names", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
