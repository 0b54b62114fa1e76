package query

import (
	"slices"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Validate checks q against the evaluated fragment.
//
// Rules, checked in order:
//  1. q is non-nil and has at least one select
//  2. every select names a column; only MAX is accepted as aggregate, at
//     most once, and an aggregate select is the only select
//  3. no ORDER BY and no GROUP BY
//  4. at most one join, inner, naming a relation between two distinct
//     elements that both have selects; no other element has selects
//  5. the where list alternates condition, AND, condition...
//  6. every condition uses a supported operator with an operand of a
//     supported kind, on an element that has selects
//
// Validate is a pure function; the first violation is returned.
func Validate(q *Query) error {
	if q == nil {
		return queryerr.Validation("nil query")
	}
	if len(q.Selects) == 0 {
		return queryerr.Validation("query has no selects")
	}
	if err := validateSelects(q.Selects); err != nil {
		return err
	}
	if len(q.OrderBy) > 0 {
		return queryerr.Unsupported("ORDER BY is not supported")
	}
	if len(q.GroupBy) > 0 {
		return queryerr.Unsupported("GROUP BY is not supported")
	}
	if err := validateJoins(q); err != nil {
		return err
	}
	if err := validateWhere(q.Where); err != nil {
		return err
	}

	selected := make(map[int64]bool)
	for _, id := range q.Elements() {
		selected[id] = true
	}
	for _, c := range q.Conditions() {
		if !selected[c.Element] {
			return queryerr.Validation("condition on element %d which has no selects", c.Element)
		}
	}
	return nil
}

func validateSelects(selects []Select) error {
	aggregates := 0
	for i, s := range selects {
		if s.Column == "" {
			return queryerr.Validation("select %d: empty column name", i)
		}
		if _, ok := aggregateNames[s.Aggregate]; !ok {
			return queryerr.Validation("select %d: unknown aggregate %d", i, int(s.Aggregate))
		}
		if s.Aggregate == AggNone {
			continue
		}
		if s.Aggregate != AggMax {
			return queryerr.Unsupported("aggregate %s is not supported, only MAX", s.Aggregate)
		}
		if s.IsWildcard() {
			return queryerr.Unsupported("aggregate on wildcard select")
		}
		aggregates++
	}
	if aggregates > 1 {
		return queryerr.Unsupported("%d aggregated columns, at most one is supported", aggregates)
	}
	if aggregates == 1 && len(selects) > 1 {
		return queryerr.Unsupported("an aggregate select must be the only select")
	}
	return nil
}

func validateJoins(q *Query) error {
	if len(q.Joins) == 0 {
		return nil
	}
	if len(q.Joins) > 1 {
		return queryerr.Unsupported("%d joins, at most one is supported", len(q.Joins))
	}
	j := q.Joins[0]
	if j.Type != JoinInner {
		return queryerr.Unsupported("%s join is not supported", j.Type)
	}
	if j.Relation == "" {
		return queryerr.Validation("join without relation name")
	}
	elements := q.Elements()
	if len(elements) > 2 {
		return queryerr.Unsupported("join with selects on %d elements, at most two are supported", len(elements))
	}
	if !slices.Contains(elements, j.Source) {
		return queryerr.Validation("join source element %d has no selects", j.Source)
	}
	if !slices.Contains(elements, j.Target) {
		return queryerr.Validation("join target element %d has no selects", j.Target)
	}
	if j.Source == j.Target {
		return queryerr.Unsupported("self join on element %d is not supported", j.Source)
	}
	return nil
}

// validateWhere checks the shape of the where list and each condition.
func validateWhere(items []WhereItem) error {
	expectCondition := true
	for i, item := range items {
		switch it := item.(type) {
		case Condition:
			if !expectCondition {
				return queryerr.Validation("where item %d: conditions must be separated by AND", i)
			}
			if err := validateCondition(it); err != nil {
				return err
			}
			expectCondition = false
		case Combinator:
			if it != And {
				return queryerr.Unsupported("combinator %s is not supported, only AND", it)
			}
			if expectCondition {
				return queryerr.Validation("where item %d: AND without a preceding condition", i)
			}
			expectCondition = true
		default:
			return queryerr.Validation("where item %d: unknown item %T", i, item)
		}
	}
	if len(items) > 0 && expectCondition {
		return queryerr.Validation("where list ends with AND")
	}
	return nil
}

func validateCondition(c Condition) error {
	if c.Column == "" {
		return queryerr.Validation("condition without column name")
	}
	if _, ok := operatorNames[c.Operator]; !ok {
		return queryerr.Validation("unknown operator %d", int(c.Operator))
	}
	if !c.Operator.Supported() {
		return queryerr.Unsupported("operator %s is not supported", c.Operator)
	}
	if err := CheckOperand(c.Operator, c.Operand); err != nil {
		return err.WithColumn("", c.Column)
	}
	return nil
}

// CheckOperand verifies that operand has a kind op can be evaluated with.
func CheckOperand(op Operator, operand value.Value) *queryerr.Error {
	if op.IsNullTest() {
		return nil
	}
	switch operand.Type {
	case value.DTString, value.DSString,
		value.DTLongLong, value.DSLongLong,
		value.DTEnum, value.DSEnum:
	default:
		return queryerr.TypeMismatch("operand kind %s is not supported by conditions", operand.Type)
	}
	if !operand.Present() {
		return queryerr.Validation("operator %s needs an operand value", op)
	}
	switch {
	case op.CaseInsensitive() || op.IsLike():
		if operand.Type != value.DTString {
			return queryerr.TypeMismatch("operator %s needs a %s operand, got %s", op, value.DTString, operand.Type)
		}
	case op.IsSet():
		if !operand.Type.IsSequence() {
			return queryerr.TypeMismatch("operator %s needs a sequence operand, got %s", op, operand.Type)
		}
	default:
		if operand.Type.IsSequence() {
			return queryerr.TypeMismatch("operator %s needs a scalar operand, got %s", op, operand.Type)
		}
	}
	return nil
}
