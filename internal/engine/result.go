package engine

import (
	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Result is the outcome of one evaluation.
//
// Elements appear in first-select order. Each element's columns are aligned
// to that element's rows; after a join, every element has one row per
// joined pair.
type Result struct {
	EvalID      string          `json:"eval_id"`
	Fingerprint string          `json:"fingerprint"`
	Joined      bool            `json:"joined"`
	Elements    []ElementResult `json:"elements"`
}

// ElementResult holds the projected columns of one element.
type ElementResult struct {
	ElementID   int64    `json:"element_id"`
	ElementName string   `json:"element"`
	Columns     []Column `json:"columns"`
}

// Column is one named, typed column of values.
type Column struct {
	Name      string          `json:"name"`
	Type      value.DataType  `json:"-"`
	TypeName  string          `json:"type"`
	Aggregate query.Aggregate `json:"-"`
	Values    []value.Value   `json:"values"`
}

func newColumn(name string, dt value.DataType, values []value.Value) Column {
	return Column{Name: name, Type: dt, TypeName: dt.String(), Values: values}
}

// Element returns the result of the named element, or nil.
func (r *Result) Element(name string) *ElementResult {
	for i := range r.Elements {
		if r.Elements[i].ElementName == name {
			return &r.Elements[i]
		}
	}
	return nil
}

// Rows returns the number of rows of the element.
func (er *ElementResult) Rows() int {
	if len(er.Columns) == 0 {
		return 0
	}
	return len(er.Columns[0].Values)
}

// Column returns the named column, or nil.
func (er *ElementResult) Column(name string) *Column {
	for i := range er.Columns {
		if er.Columns[i].Name == name {
			return &er.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in order.
func (er *ElementResult) ColumnNames() []string {
	names := make([]string, len(er.Columns))
	for i, c := range er.Columns {
		names[i] = c.Name
	}
	return names
}

// Strings returns the text form of every value of the column.
func (c *Column) Strings() []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		out[i] = value.ToString(v)
	}
	return out
}
