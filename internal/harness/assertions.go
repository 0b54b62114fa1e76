package harness

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Step     string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s (step %s)\n", e.Type, e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	outcome := result.Step(a.Step)
	if outcome == nil {
		return &AssertionError{Type: a.Type, Step: a.Step, Expected: "step executed", Actual: "step not found"}
	}

	switch a.Type {
	case AssertRowCount:
		return assertRowCount(outcome, a)
	case AssertColumnValues:
		return assertColumnValues(outcome, a)
	case AssertColumnOrder:
		return assertColumnOrder(outcome, a)
	case AssertSameResult:
		return assertSameResult(result, outcome, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func element(outcome *StepOutcome, a Assertion) (*ElementSnapshot, error) {
	if outcome.Error != "" {
		return nil, &AssertionError{Type: a.Type, Step: a.Step, Expected: "successful step", Actual: "error " + outcome.Error}
	}
	es := outcome.Element(a.Element)
	if es == nil {
		return nil, &AssertionError{Type: a.Type, Step: a.Step, Expected: "element " + a.Element, Actual: "element not in result"}
	}
	return es, nil
}

// assertRowCount checks the number of rows of an element.
func assertRowCount(outcome *StepOutcome, a Assertion) error {
	es, err := element(outcome, a)
	if err != nil {
		return err
	}
	if es.Rows() != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Step:     a.Step,
			Expected: fmt.Sprintf("%d rows of %s", a.Count, a.Element),
			Actual:   fmt.Sprintf("%d rows", es.Rows()),
		}
	}
	return nil
}

// assertColumnValues checks a column's values in text form, row by row.
func assertColumnValues(outcome *StepOutcome, a Assertion) error {
	es, err := element(outcome, a)
	if err != nil {
		return err
	}
	col := es.Column(a.Column)
	if col == nil {
		return &AssertionError{Type: a.Type, Step: a.Step, Expected: "column " + a.Element + "." + a.Column, Actual: "column not in result"}
	}
	if !slices.EqualFunc(a.Values, col.Values, equalText) {
		return &AssertionError{
			Type:     a.Type,
			Step:     a.Step,
			Expected: fmt.Sprintf("%s.%s = %s", a.Element, a.Column, formatTexts(a.Values)),
			Actual:   formatTexts(col.Values),
		}
	}
	return nil
}

// assertColumnOrder checks the element's column names, in order.
func assertColumnOrder(outcome *StepOutcome, a Assertion) error {
	es, err := element(outcome, a)
	if err != nil {
		return err
	}
	names := make([]string, len(es.Columns))
	for i, c := range es.Columns {
		names[i] = c.Name
	}
	if !slices.Equal(a.Columns, names) {
		return &AssertionError{
			Type:     a.Type,
			Step:     a.Step,
			Expected: fmt.Sprintf("columns %v", a.Columns),
			Actual:   fmt.Sprintf("columns %v", names),
		}
	}
	return nil
}

// assertSameResult checks that two steps produced the same outcome,
// ignoring step names.
func assertSameResult(result *Result, outcome *StepOutcome, a Assertion) error {
	other := result.Step(a.Other)
	if other == nil {
		return &AssertionError{Type: a.Type, Step: a.Step, Expected: "step " + a.Other, Actual: "step not found"}
	}

	left, right := *outcome, *other
	left.Step, right.Step = "", ""
	left.Fingerprint, right.Fingerprint = "", ""
	if !reflect.DeepEqual(left, right) {
		return &AssertionError{
			Type:     a.Type,
			Step:     a.Step,
			Expected: "same result as " + a.Other,
			Actual:   "results differ",
		}
	}
	return nil
}

func equalText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatTexts(values []*string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			parts[i] = "null"
		} else {
			parts[i] = fmt.Sprintf("%q", *v)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
