package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/schema"
)

// Scenario defines a query test scenario: a model, a dataset and a list of
// queries with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the directory of CUE model files. Relative paths are resolved
	// against the scenario file's directory.
	Model string `yaml:"model"`

	// Data is the YAML instance data file, resolved like Model. Optional.
	Data string `yaml:"data,omitempty"`

	// Store selects the instance store: "sqlite" (default, in-memory
	// database) or "memory" (fixture store).
	Store string `yaml:"store,omitempty"`

	// EvalID is the fixed evaluation id. Defaults to "test-eval".
	EvalID string `yaml:"eval_id,omitempty"`

	// Steps are the queries, run in order against the same store.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the step outcomes after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one query with its expected outcome.
type Step struct {
	// Name identifies the step in assertions and golden files.
	Name string `yaml:"name"`

	// Query is the query in query-file form.
	Query schema.QueryDoc `yaml:"query"`

	// Expect specifies the expected outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected query error code (e.g. "NOT_FOUND"). Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Joined, when set, must equal the result's joined flag.
	Joined *bool `yaml:"joined,omitempty"`

	// Rows maps element names to expected row counts.
	Rows map[string]int `yaml:"rows,omitempty"`
}

// Assertion checks one aspect of a step outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": Element has Count rows
	// - "column_values": Column holds exactly Values (null = no value)
	// - "column_order": Element's columns are exactly Columns
	// - "same_result": Step and Other produced identical outcomes
	Type string `yaml:"type"`

	// Step names the step the assertion applies to.
	Step string `yaml:"step"`

	// Element is the element name (row_count, column_values, column_order).
	Element string `yaml:"element,omitempty"`

	// Column is the column name (column_values).
	Column string `yaml:"column,omitempty"`

	// Count is the expected row count (row_count).
	Count int `yaml:"count,omitempty"`

	// Values are the expected values in text form (column_values).
	Values []*string `yaml:"values,omitempty"`

	// Columns are the expected column names (column_order).
	Columns []string `yaml:"columns,omitempty"`

	// Other names the step to compare against (same_result).
	Other string `yaml:"other,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount     = "row_count"
	AssertColumnValues = "column_values"
	AssertColumnOrder  = "column_order"
	AssertSameResult   = "same_result"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// DefaultEvalID is the evaluation id used when a scenario sets none.
const DefaultEvalID = "test-eval"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Model and data paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Model = resolvePath(base, scenario.Model)
	scenario.Data = resolvePath(base, scenario.Data)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks required fields and assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	switch s.Store {
	case "", StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", s.Store)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	steps := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if steps[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		steps[step.Name] = true

		if step.Expect != nil && step.Expect.Error != "" && !knownCode(step.Expect.Error) {
			return fmt.Errorf("steps[%d]: unknown error code %q", i, step.Expect.Error)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, steps); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, steps map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !steps[a.Step] {
		return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Element == "" {
			return fmt.Errorf("assertions[%d]: element is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertColumnValues:
		if a.Element == "" || a.Column == "" {
			return fmt.Errorf("assertions[%d]: element and column are required for column_values", index)
		}
	case AssertColumnOrder:
		if a.Element == "" || len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: element and columns are required for column_order", index)
		}
	case AssertSameResult:
		if !steps[a.Other] {
			return fmt.Errorf("assertions[%d]: unknown other step %q", index, a.Other)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func knownCode(code string) bool {
	switch queryerr.Code(code) {
	case queryerr.CodeValidation, queryerr.CodeUnsupportedFeature, queryerr.CodeNotFound,
		queryerr.CodeTypeMismatch, queryerr.CodeInvariant, queryerr.CodeBadParameter:
		return true
	}
	return false
}
