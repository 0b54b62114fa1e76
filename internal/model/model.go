// Package model defines the meta-model the query engine resolves queries
// against: elements, their attributes and relations, and enumerations.
//
// Model values are read-only from the engine's perspective. Stores build
// them once and hand out shared pointers.
package model

import (
	"strings"

	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Many is the Range.Max marker for an unbounded side of a relation.
const Many = -1

// Base names the engine recognizes.
const (
	BaseNameID     = "id"
	BaseNameValues = "values"

	// BaseTypeLocalColumn is the base type of elements holding measured samples.
	BaseTypeLocalColumn = "AoLocalColumn"
)

// Element is a named type in the meta-model.
type Element struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	BaseType   string       `json:"base_type"`
	Attributes []*Attribute `json:"attributes"` // declaration order
	Relations  []*Relation  `json:"relations"`  // declaration order
}

// Attribute is a typed, named property of an element.
type Attribute struct {
	Name        string         `json:"name"`
	BaseName    string         `json:"base_name,omitempty"`
	DataType    value.DataType `json:"data_type"`
	Unit        int64          `json:"unit,omitempty"`        // 0 = no unit
	Enumeration string         `json:"enumeration,omitempty"` // for DT_ENUM/DS_ENUM
}

// Range is a cardinality range. Max == Many means unbounded.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// IsMany reports whether the range is unbounded.
func (r Range) IsMany() bool {
	return r.Max == Many
}

// Relation is a directed, named edge type from Source to Target.
type Relation struct {
	Name         string `json:"name"`
	Source       int64  `json:"source"`
	Target       int64  `json:"target"`
	Range        Range  `json:"range"`
	InverseName  string `json:"inverse_name,omitempty"`
	InverseRange Range  `json:"inverse_range"`
}

// IsManyToMany reports whether both the relation and its inverse are
// unbounded.
func (r *Relation) IsManyToMany() bool {
	return r.Range.IsMany() && r.InverseRange.IsMany()
}

// IsToMany reports whether the relation's own side is unbounded.
func (r *Relation) IsToMany() bool {
	return r.Range.IsMany()
}

// Attribute returns the attribute with the given name, or nil.
func (e *Element) Attribute(name string) *Attribute {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AttributeByBaseName returns the first attribute with the given base name
// (case-insensitive), or nil.
func (e *Element) AttributeByBaseName(baseName string) *Attribute {
	for _, a := range e.Attributes {
		if a.BaseName != "" && strings.EqualFold(a.BaseName, baseName) {
			return a
		}
	}
	return nil
}

// Relation returns the relation with the given name, or nil.
func (e *Element) Relation(name string) *Relation {
	for _, r := range e.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// IDAttribute returns the identifier attribute (base name "id"), or nil.
func (e *Element) IDAttribute() *Attribute {
	return e.AttributeByBaseName(BaseNameID)
}

// IsBulkValues reports whether a is the sample-array attribute of a local
// column element.
func (e *Element) IsBulkValues(a *Attribute) bool {
	return strings.EqualFold(e.BaseType, BaseTypeLocalColumn) &&
		strings.EqualFold(a.BaseName, BaseNameValues)
}

// EnumItem is one symbolic entry of an enumeration.
type EnumItem struct {
	Name string `json:"name"`
	Code int32  `json:"code"`
}

// Enumeration maps symbolic names to DT_ENUM codes.
type Enumeration struct {
	Name  string     `json:"name"`
	Items []EnumItem `json:"items"`
}

// ItemName returns the symbolic name for code.
func (e *Enumeration) ItemName(code int32) (string, bool) {
	for _, it := range e.Items {
		if it.Code == code {
			return it.Name, true
		}
	}
	return "", false
}

// ItemCode returns the code for a symbolic name.
func (e *Enumeration) ItemCode(name string) (int32, bool) {
	for _, it := range e.Items {
		if it.Name == name {
			return it.Code, true
		}
	}
	return 0, false
}

// Model is a complete meta-model: elements in declaration order plus
// enumerations.
type Model struct {
	Elements     []*Element     `json:"elements"`
	Enumerations []*Enumeration `json:"enumerations,omitempty"`
}

// Element returns the element with the given name, or nil.
func (m *Model) Element(name string) *Element {
	for _, e := range m.Elements {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// ElementByID returns the element with the given id, or nil.
func (m *Model) ElementByID(id int64) *Element {
	for _, e := range m.Elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Enumeration returns the enumeration with the given name, or nil.
func (m *Model) Enumeration(name string) *Enumeration {
	for _, e := range m.Enumerations {
		if e.Name == name {
			return e
		}
	}
	return nil
}
