// Package query defines the query structure evaluated by the engine and the
// up-front shape validation applied before any store access.
//
// STRUCTURE:
//
// A Query is plain data, built per call and discarded after evaluation:
//
//	Query{
//	  Selects: []Select{{Element: 2, Column: "Name"}, {Element: 2, Column: "Id"}},
//	  Where: []WhereItem{
//	    Condition{Element: 2, Column: "Name", Operator: OpLike, Operand: value.NewString("Run*")},
//	    And,
//	    Condition{Element: 2, Column: "Status", Operator: OpIsNotNull},
//	  },
//	  Joins: []Join{{Source: 2, Target: 5, Relation: "parameters"}},
//	}
//
// Selects name a column of an element: an attribute, a relation, or the
// wildcard "*". Where is a flat list of Conditions and Combinators in the
// order a client wrote them.
//
// SEALED INTERFACES:
//
// WhereItem is sealed with a marker method. Only Condition and Combinator
// implement it, so evaluators can switch exhaustively.
//
// SUPPORTED FRAGMENT:
//
// The engine evaluates a strict subset of what the structure can express:
//   - conditions combined with AND only
//   - at most one join, inner, over a relation of the first element
//   - at most one aggregate (MAX), and it must be the only select
//   - no ORDER BY, no GROUP BY
//
// Validate reports the first violation as a *queryerr.Error. It never
// touches a store, so a rejected query has no side effects.
package query
