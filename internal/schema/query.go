package schema

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// QueryDoc is the YAML layout of a query:
//
//	select:
//	  - {element: Measurement, column: Name}
//	  - {element: Measurement, column: Size, aggregate: MAX}
//	where:
//	  - {element: Measurement, column: Name, op: LIKE, value: "Run*"}
//	  - and
//	  - {element: Measurement, column: Size, op: INSET, value: [3, 9]}
//	join:
//	  - {source: TestStep, target: ParameterSet, relation: parameters}
//
// Elements are referenced by name. Where items are conditions or the
// combinators and, or, not, "(" and ")".
type QueryDoc struct {
	Select  []SelectDoc `yaml:"select"`
	Where   []yaml.Node `yaml:"where,omitempty"`
	Join    []JoinDoc   `yaml:"join,omitempty"`
	OrderBy []OrderDoc  `yaml:"order_by,omitempty"`
	GroupBy []ColumnDoc `yaml:"group_by,omitempty"`
}

// SelectDoc is one select entry.
type SelectDoc struct {
	Element   string `yaml:"element"`
	Column    string `yaml:"column"`
	Aggregate string `yaml:"aggregate,omitempty"`
}

// ConditionDoc is one condition entry of a where list.
//
// The operand kind follows the column: DT_ENUM for enum attributes,
// DT_LONGLONG for other integral attributes and for relations, DT_STRING
// otherwise; a list makes it the sequence kind. Type overrides this.
type ConditionDoc struct {
	Element string
	Column  string
	Op      string
	Value   *yaml.Node // raw operand, nil when absent
	Type    string
}

// UnmarshalYAML reads a condition mapping key by key. The value node is
// kept undecoded until the operand kind is known.
func (d *ConditionDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: condition must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var field *string
		switch key.Value {
		case "element":
			field = &d.Element
		case "column":
			field = &d.Column
		case "op":
			field = &d.Op
		case "type":
			field = &d.Type
		case "value":
			d.Value = val
			continue
		default:
			return fmt.Errorf("line %d: unknown condition field %q", key.Line, key.Value)
		}
		if err := val.Decode(field); err != nil {
			return fmt.Errorf("line %d: %s: %w", val.Line, key.Value, err)
		}
	}
	return nil
}

// JoinDoc is one join entry. Type is "inner" (default) or "outer".
type JoinDoc struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Relation string `yaml:"relation"`
	Type     string `yaml:"type,omitempty"`
}

// ColumnDoc names a column of an element.
type ColumnDoc struct {
	Element string `yaml:"element"`
	Column  string `yaml:"column"`
}

// OrderDoc is one order_by entry.
type OrderDoc struct {
	Element    string `yaml:"element"`
	Column     string `yaml:"column"`
	Descending bool   `yaml:"descending,omitempty"`
}

// ReadQuery reads a YAML query file; see DecodeQuery.
func ReadQuery(path string, m *model.Model) (*query.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	defer f.Close()

	q, err := DecodeQuery(f, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// DecodeQuery decodes a YAML query and resolves it against m.
func DecodeQuery(r io.Reader, m *model.Model) (*query.Query, error) {
	var doc QueryDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc.Resolve(m)
}

// Resolve converts the document into a query against m. Element names must
// exist in m; unknown columns are left for the engine to report.
func (d *QueryDoc) Resolve(m *model.Model) (*query.Query, error) {
	q := &query.Query{}
	r := resolver{m: m}

	for _, s := range d.Select {
		elem, err := r.element(s.Element)
		if err != nil {
			return nil, err
		}
		agg, ok := query.ParseAggregate(s.Aggregate)
		if !ok {
			return nil, queryerr.Validation("unknown aggregate %q", s.Aggregate).WithColumn(elem.Name, s.Column)
		}
		q.Selects = append(q.Selects, query.Select{Element: elem.ID, Column: s.Column, Aggregate: agg})
	}

	for i := range d.Where {
		item, err := r.whereItem(&d.Where[i])
		if err != nil {
			return nil, err
		}
		q.Where = append(q.Where, item)
	}

	for _, j := range d.Join {
		src, err := r.element(j.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := r.element(j.Target)
		if err != nil {
			return nil, err
		}
		join := query.Join{Source: src.ID, Target: tgt.ID, Relation: j.Relation}
		switch strings.ToLower(j.Type) {
		case "", "inner":
			join.Type = query.JoinInner
		case "outer":
			join.Type = query.JoinOuter
		default:
			return nil, queryerr.Validation("unknown join type %q", j.Type)
		}
		q.Joins = append(q.Joins, join)
	}

	for _, o := range d.OrderBy {
		elem, err := r.element(o.Element)
		if err != nil {
			return nil, err
		}
		q.OrderBy = append(q.OrderBy, query.OrderBy{Element: elem.ID, Column: o.Column, Ascending: !o.Descending})
	}
	for _, g := range d.GroupBy {
		elem, err := r.element(g.Element)
		if err != nil {
			return nil, err
		}
		q.GroupBy = append(q.GroupBy, query.GroupBy{Element: elem.ID, Column: g.Column})
	}

	return q, nil
}

type resolver struct {
	m *model.Model
}

func (r resolver) element(name string) (*model.Element, error) {
	if e := r.m.Element(name); e != nil {
		return e, nil
	}
	return nil, queryerr.NotFound("element %q not found", name)
}

func (r resolver) whereItem(node *yaml.Node) (query.WhereItem, error) {
	if node.Kind == yaml.ScalarNode {
		switch node.Value {
		case "(":
			return query.Open, nil
		case ")":
			return query.Close, nil
		}
		c, ok := query.ParseCombinator(node.Value)
		if !ok {
			return nil, queryerr.Validation("line %d: unknown combinator %q", node.Line, node.Value)
		}
		return c, nil
	}

	var doc ConditionDoc
	if err := doc.UnmarshalYAML(node); err != nil {
		return nil, err
	}
	return r.condition(doc)
}

func (r resolver) condition(doc ConditionDoc) (query.Condition, error) {
	elem, err := r.element(doc.Element)
	if err != nil {
		return query.Condition{}, err
	}
	op, ok := query.ParseOperator(doc.Op)
	if !ok {
		return query.Condition{}, queryerr.Validation("unknown operator %q", doc.Op).WithColumn(elem.Name, doc.Column)
	}
	c := query.Condition{Element: elem.ID, Column: doc.Column, Operator: op}
	if doc.Value == nil || op.IsNullTest() {
		return c, nil
	}

	isList := doc.Value.Kind == yaml.SequenceNode
	dt, enum, err := r.operandType(elem, doc.Column, doc.Type, isList)
	if err != nil {
		return query.Condition{}, err
	}
	if c.Operand, err = nodeValue(dt, enum, doc.Value); err != nil {
		return query.Condition{}, annotate(err, elem.Name, doc.Column)
	}
	return c, nil
}

// operandType picks the operand kind for a condition on column.
func (r resolver) operandType(elem *model.Element, column, override string, isList bool) (value.DataType, *model.Enumeration, error) {
	var (
		dt   value.DataType
		enum *model.Enumeration
	)

	attr := elem.Attribute(column)
	if attr != nil {
		enum = r.m.Enumeration(attr.Enumeration)
	}

	switch {
	case override != "":
		parsed, err := value.ParseDataType(override)
		if err != nil {
			return 0, nil, annotate(err, elem.Name, column)
		}
		dt = parsed.Elem()
	case attr != nil && attr.DataType.Elem() == value.DTEnum:
		dt = value.DTEnum
	case attr != nil && attr.DataType.IsIntegral():
		dt = value.DTLongLong
	case attr == nil && elem.Relation(column) != nil:
		dt = value.DTLongLong
	default:
		dt = value.DTString
	}

	if isList {
		seq, ok := dt.Sequence()
		if !ok {
			return 0, nil, queryerr.TypeMismatch("%s has no sequence kind", dt).WithColumn(elem.Name, column)
		}
		dt = seq
	}
	return dt, enum, nil
}
