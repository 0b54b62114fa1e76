package query

import (
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Wildcard is the column name that selects every eligible column of an
// element.
const Wildcard = "*"

// Query is one request against an instance store.
type Query struct {
	Selects []Select
	Where   []WhereItem // nil = no filter
	Joins   []Join
	OrderBy []OrderBy
	GroupBy []GroupBy
}

// Select requests one column of an element, optionally aggregated.
type Select struct {
	Element   int64
	Column    string // attribute name, relation name or Wildcard
	Aggregate Aggregate
}

// IsWildcard reports whether the select is a "*" request.
func (s Select) IsWildcard() bool {
	return s.Column == Wildcard
}

// WhereItem is one entry of a where list: a Condition or a Combinator.
//
// This is a sealed interface - only types in this package implement it.
type WhereItem interface {
	whereItem() // Marker method - seals interface to this package
}

// Condition compares a column of each candidate row against an operand.
//
// Column may name an attribute or a relation. For a relation, the compared
// value is the set of related instance ids of the row.
type Condition struct {
	Element  int64
	Column   string
	Operator Operator
	Operand  value.Value // ignored by IS_NULL and IS_NOT_NULL
}

func (Condition) whereItem() {}

// Combinator joins or groups conditions in a where list.
type Combinator int

const (
	And Combinator = iota + 1
	Or
	Not
	Open  // "("
	Close // ")"
)

var combinatorNames = map[Combinator]string{
	And:   "AND",
	Or:    "OR",
	Not:   "NOT",
	Open:  "OPEN",
	Close: "CLOSE",
}

func (c Combinator) String() string {
	if name, ok := combinatorNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

func (Combinator) whereItem() {}

// ParseCombinator maps a combinator name (case-insensitive) to its value.
func ParseCombinator(name string) (Combinator, bool) {
	return lookupName(combinatorNames, name)
}

// JoinType selects inner or outer join semantics.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinOuter
)

func (t JoinType) String() string {
	if t == JoinOuter {
		return "OUTER"
	}
	return "INNER"
}

// Join requests expansion of Source rows along Relation to Target rows.
type Join struct {
	Source   int64
	Target   int64
	Relation string // relation name on Source
	Type     JoinType
}

// OrderBy requests sorting on a column. Not evaluated.
type OrderBy struct {
	Element   int64
	Column    string
	Ascending bool
}

// GroupBy requests grouping on a column. Not evaluated.
type GroupBy struct {
	Element int64
	Column  string
}

// Conditions returns the conditions of the where list in order.
func (q *Query) Conditions() []Condition {
	var out []Condition
	for _, item := range q.Where {
		if c, ok := item.(Condition); ok {
			out = append(out, c)
		}
	}
	return out
}

// Elements returns the distinct element ids that have selects, in first
// select order.
func (q *Query) Elements() []int64 {
	var out []int64
	seen := make(map[int64]bool)
	for _, s := range q.Selects {
		if !seen[s.Element] {
			seen[s.Element] = true
			out = append(out, s.Element)
		}
	}
	return out
}

// AggregateSelect returns the first aggregated select, if any.
func (q *Query) AggregateSelect() (Select, bool) {
	for _, s := range q.Selects {
		if s.Aggregate != AggNone {
			return s, true
		}
	}
	return Select{}, false
}
