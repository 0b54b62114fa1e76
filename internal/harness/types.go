package harness

import (
	"github.com/peak-solution/openatfx-sub003/internal/engine"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// StepOutcome is the recorded result of one query step.
type StepOutcome struct {
	Step        string `json:"step"`
	Fingerprint string `json:"-"`

	// Error is the query error code, or the error text for errors without
	// a code. Empty when the step succeeded.
	Error string `json:"error,omitempty"`

	Joined   bool              `json:"joined,omitempty"`
	Elements []ElementSnapshot `json:"elements,omitempty"`
}

// ElementSnapshot is the text form of one element of a query result.
type ElementSnapshot struct {
	Element string           `json:"element"`
	Columns []ColumnSnapshot `json:"columns"`
}

// ColumnSnapshot holds column values in text form; nil marks "no value".
type ColumnSnapshot struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Values []*string `json:"values"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one outcome per query step, in scenario order.
	Steps []StepOutcome `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step returns the outcome of the named step, or nil.
func (r *Result) Step(name string) *StepOutcome {
	for i := range r.Steps {
		if r.Steps[i].Step == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Element returns the snapshot of the named element, or nil.
func (o *StepOutcome) Element(name string) *ElementSnapshot {
	for i := range o.Elements {
		if o.Elements[i].Element == name {
			return &o.Elements[i]
		}
	}
	return nil
}

// Column returns the named column, or nil.
func (e *ElementSnapshot) Column(name string) *ColumnSnapshot {
	for i := range e.Columns {
		if e.Columns[i].Name == name {
			return &e.Columns[i]
		}
	}
	return nil
}

// Rows returns the row count of the element.
func (e *ElementSnapshot) Rows() int {
	if len(e.Columns) == 0 {
		return 0
	}
	return len(e.Columns[0].Values)
}

func snapshot(res *engine.Result) []ElementSnapshot {
	out := make([]ElementSnapshot, len(res.Elements))
	for i, er := range res.Elements {
		es := ElementSnapshot{Element: er.ElementName, Columns: make([]ColumnSnapshot, len(er.Columns))}
		for j, col := range er.Columns {
			cs := ColumnSnapshot{Name: col.Name, Type: col.TypeName, Values: make([]*string, len(col.Values))}
			for k, v := range col.Values {
				if v.Present() {
					text := value.ToString(v)
					cs.Values[k] = &text
				}
			}
			es.Columns[j] = cs
		}
		out[i] = es
	}
	return out
}
