package engine

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// cell is the comparable content of one row for one condition column.
//
// Attributes contribute their value: integers for integral operands, text
// forms otherwise (one per element for string sequences). Relations
// contribute the related instance ids.
type cell struct {
	present bool
	ints    []int64
	texts   []string
}

// matcher reports whether a cell satisfies a positive operator.
type matcher func(cell) bool

// integralOperand reports whether c compares as int64 rather than text.
func integralOperand(c query.Condition) bool {
	switch c.Operand.Type.Elem() {
	case value.DTLongLong, value.DTEnum:
		return !c.Operator.IsNullTest()
	}
	return false
}

// checkConditionColumn rejects integer comparisons on non-integral
// attributes. Relation ids are always integral.
func checkConditionColumn(c query.Condition, col column) *queryerr.Error {
	if !integralOperand(c) || col.attribute == nil {
		return nil
	}
	if !col.attribute.DataType.IsIntegral() {
		return queryerr.TypeMismatch("operand %s cannot be compared with %s column",
			c.Operand.Type, col.attribute.DataType)
	}
	return nil
}

// filter narrows ids to the rows satisfying c. Order is kept.
//
// Negated operators are exact complements of their positive forms: a row
// that fails EQ (including one without a value) passes NEQ.
func (e *Engine) filter(ctx context.Context, elem *model.Element, ids []int64, c condition) ([]int64, error) {
	if len(ids) == 0 {
		return ids, nil
	}
	m, err := newMatcher(c.Operator.Positive(), c.Operand)
	if err != nil {
		return nil, err
	}
	cells, err := e.cells(ctx, elem, ids, c)
	if err != nil {
		return nil, err
	}

	negate := c.Operator.Negated()
	out := make([]int64, 0, len(ids))
	for i, id := range ids {
		if m(cells[i]) != negate {
			out = append(out, id)
		}
	}
	return out, nil
}

// cells loads the comparable content of c's column for every row.
func (e *Engine) cells(ctx context.Context, elem *model.Element, ids []int64, c condition) ([]cell, error) {
	out := make([]cell, len(ids))
	integral := integralOperand(c.Condition)

	if rel := c.col.relation; rel != nil {
		for i, id := range ids {
			related, err := e.store.RelatedIDs(ctx, elem.ID, id, rel)
			if err != nil {
				return nil, fmt.Errorf("related ids of %s %d over %s: %w", elem.Name, id, rel.Name, err)
			}
			out[i] = cell{present: len(related) > 0, ints: related}
			if !integral {
				out[i].texts = formatIDs(related)
			}
		}
		return out, nil
	}

	values, err := e.store.Values(ctx, elem.ID, c.col.attribute.Name, ids)
	if err != nil {
		return nil, fmt.Errorf("values of %s.%s: %w", elem.Name, c.col.name, err)
	}
	if len(values) != len(ids) {
		return nil, queryerr.Invariant("store returned %d values for %d instances", len(values), len(ids)).
			WithColumn(elem.Name, c.col.name)
	}
	for i, v := range values {
		out[i] = cell{present: v.Present()}
		if !v.Present() {
			continue
		}
		if integral {
			ns, err := value.Int64s(v)
			if err != nil {
				return nil, err
			}
			out[i].ints = ns
		} else {
			out[i].texts = value.Strings(v)
		}
	}
	return out, nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

// newMatcher builds the test for a positive operator. A cell matches when
// any of its elements matches; absent cells never match.
func newMatcher(op query.Operator, operand value.Value) (matcher, error) {
	if op == query.OpIsNull {
		return func(c cell) bool { return !c.present }, nil
	}
	if operand.Type.Elem() == value.DTString {
		return newTextMatcher(op, operand)
	}
	return newIntMatcher(op, operand)
}

func newTextMatcher(op query.Operator, operand value.Value) (matcher, error) {
	switch op {
	case query.OpEQ:
		want := value.ToString(operand)
		return anyText(func(s string) bool { return s == want }), nil

	case query.OpCIEQ:
		fold := cases.Fold()
		want := fold.String(value.ToString(operand))
		return anyText(func(s string) bool { return fold.String(s) == want }), nil

	case query.OpLike:
		pattern := value.ToString(operand)
		re, err := likeRegexp(pattern)
		if err != nil {
			return nil, queryerr.BadParameter("invalid LIKE pattern %q: %v", pattern, err)
		}
		return anyText(re.MatchString), nil

	case query.OpCILike:
		// A row matches rune by rune ignoring case, or when its full case
		// folding matches the folded pattern ("STRA?E" and "STRASSE" both
		// match "straße").
		pattern := value.ToString(operand)
		fold := cases.Fold()
		perRune, err := regexp.Compile("(?i)" + likeExpr(pattern))
		if err != nil {
			return nil, queryerr.BadParameter("invalid LIKE pattern %q: %v", pattern, err)
		}
		folded, err := likeRegexp(fold.String(pattern))
		if err != nil {
			return nil, queryerr.BadParameter("invalid LIKE pattern %q: %v", pattern, err)
		}
		return anyText(func(s string) bool {
			return perRune.MatchString(s) || folded.MatchString(fold.String(s))
		}), nil

	case query.OpInSet:
		set := make(map[string]bool)
		for _, s := range value.Strings(operand) {
			set[s] = true
		}
		return anyText(func(s string) bool { return set[s] }), nil
	}
	return nil, queryerr.Unsupported("operator %s is not supported on %s operands", op, operand.Type)
}

func newIntMatcher(op query.Operator, operand value.Value) (matcher, error) {
	want, err := value.Int64s(operand)
	if err != nil {
		return nil, err
	}
	switch op {
	case query.OpEQ:
		if len(want) != 1 {
			return nil, queryerr.TypeMismatch("operator %s needs a scalar operand", op)
		}
		return anyInt(func(n int64) bool { return n == want[0] }), nil

	case query.OpInSet:
		return anyInt(func(n int64) bool { return slices.Contains(want, n) }), nil
	}
	return nil, queryerr.Unsupported("operator %s is not supported on %s operands", op, operand.Type)
}

func anyText(match func(string) bool) matcher {
	return func(c cell) bool {
		return c.present && slices.ContainsFunc(c.texts, match)
	}
}

func anyInt(match func(int64) bool) matcher {
	return func(c cell) bool {
		return c.present && slices.ContainsFunc(c.ints, match)
	}
}

// likeRegexp converts a glob pattern to an anchored regular expression:
// "*" matches any run, "?" exactly one character, everything else itself.
func likeRegexp(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(likeExpr(pattern))
}

func likeExpr(pattern string) string {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
