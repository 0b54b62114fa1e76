package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/testutil"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

var allMeasurements = []string{"Run 1", "Run 2", "run 3", "Run*4", "Calibration"}

func measurementNames(t *testing.T, conds ...query.Condition) []string {
	t.Helper()
	res := evaluate(t, testutil.SampleStore(), &query.Query{
		Selects: sel(testutil.MeasurementID, "Name"),
		Where:   and(conds...),
	})
	return columnStrings(t, res, "Measurement", "Name")
}

func mc(column string, op query.Operator, operand value.Value) query.Condition {
	return query.Condition{Element: testutil.MeasurementID, Column: column, Operator: op, Operand: operand}
}

func TestLikeRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{"A*C?", "ABCD", true},
		{"A*C?", "ABC", false},
		{"A*C?", "XBCD", false},
		{"A*C?", "ACD", true},
		{"a.b", "axb", false},
		{"a.b", "a.b", true},
		{"(x)+", "(x)+", true},
		{"*", "", true},
		{"?", "", false},
		{"line*", "line\nbreak", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.text, func(t *testing.T) {
			re, err := likeRegexp(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.text))
		})
	}
}

func TestTextMatcher_CaseFolding(t *testing.T) {
	tests := []struct {
		name    string
		op      query.Operator
		operand string
		text    string
		want    bool
	}{
		{"ci_like one char for sharp s", query.OpCILike, "STRA?E", "straße", true},
		{"ci_like full folding", query.OpCILike, "STRASSE", "straße", true},
		{"ci_like folded run", query.OpCILike, "*SSE", "Straße", true},
		{"ci_like mismatch", query.OpCILike, "STRA?E", "strasse", false},
		{"ci_eq full folding", query.OpCIEQ, "STRASSE", "straße", true},
		{"like stays case sensitive", query.OpLike, "STRA?E", "straße", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := newMatcher(tt.op, value.NewString(tt.operand))
			require.NoError(t, err)
			assert.Equal(t, tt.want, match(cell{present: true, texts: []string{tt.text}}))
		})
	}
}

func TestFilter_Operators(t *testing.T) {
	tests := []struct {
		name string
		cond query.Condition
		want []string
	}{
		{"eq", mc("Name", query.OpEQ, value.NewString("Run 1")), []string{"Run 1"}},
		{"eq is case sensitive", mc("Name", query.OpEQ, value.NewString("RUN 1")), []string{}},
		{"ci_eq", mc("Name", query.OpCIEQ, value.NewString("RUN 3")), []string{"run 3"}},
		{"neq", mc("Name", query.OpNEQ, value.NewString("Run 1")), []string{"Run 2", "run 3", "Run*4", "Calibration"}},
		{"ci_neq", mc("Name", query.OpCINEQ, value.NewString("run 1")), []string{"Run 2", "run 3", "Run*4", "Calibration"}},
		{"like", mc("Name", query.OpLike, value.NewString("Run*")), []string{"Run 1", "Run 2", "Run*4"}},
		{"ci_like", mc("Name", query.OpCILike, value.NewString("run*")), []string{"Run 1", "Run 2", "run 3", "Run*4"}},
		{"notlike", mc("Name", query.OpNotLike, value.NewString("Run*")), []string{"run 3", "Calibration"}},
		{"ci_notlike", mc("Name", query.OpCINotLike, value.NewString("RUN*")), []string{"Calibration"}},
		{"like one char", mc("Name", query.OpLike, value.NewString("Run?4")), []string{"Run*4"}},
		{"inset strings", mc("Name", query.OpInSet, value.NewStringSeq("Run 2", "Calibration", "nope")), []string{"Run 2", "Calibration"}},
		{"notinset strings", mc("Name", query.OpNotInSet, value.NewStringSeq("Run 2", "Calibration", "nope")), []string{"Run 1", "run 3", "Run*4"}},
		{"eq longlong", mc("Size", query.OpEQ, value.NewLongLong(9)), []string{"Run*4"}},
		{"inset longlong", mc("Size", query.OpInSet, value.NewLongLongSeq(3, 5)), []string{"Run 1", "Calibration"}},
		{"eq text form of integer", mc("Id", query.OpEQ, value.NewString("31")), []string{"Run 2"}},
		{"is_null", mc("Duration", query.OpIsNull, value.Value{}), []string{"Calibration"}},
		{"is_not_null", mc("Duration", query.OpIsNotNull, value.Value{}), []string{"Run 1", "Run 2", "run 3", "Run*4"}},
		{"sequence element eq", mc("Tags", query.OpEQ, value.NewString("cold")), []string{"Run 2"}},
		{"empty sequence is present", mc("Tags", query.OpIsNull, value.Value{}), []string{"Run*4"}},
		{"relation eq", mc("step", query.OpEQ, value.NewLongLong(10)), []string{"Run 1", "Run 2"}},
		{"relation inset", mc("step", query.OpInSet, value.NewLongLongSeq(11, 12)), []string{"run 3", "Run*4", "Calibration"}},
		{"relation text", mc("step", query.OpEQ, value.NewString("11")), []string{"run 3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, measurementNames(t, tt.cond))
		})
	}
}

func TestFilter_ConditionsIntersect(t *testing.T) {
	got := measurementNames(t,
		mc("Size", query.OpInSet, value.NewLongLongSeq(3, 7, 9)),
		mc("Name", query.OpLike, value.NewString("Run*")),
		mc("Name", query.OpNEQ, value.NewString("Run 2")),
	)
	assert.Equal(t, []string{"Run 1", "Run*4"}, got)
}

func TestFilter_EnumAndNegationOfAbsent(t *testing.T) {
	names := func(c query.Condition) []string {
		res := evaluate(t, testutil.SampleStore(), &query.Query{
			Selects: sel(testutil.TestStepID, "Name"),
			Where:   and(c),
		})
		return columnStrings(t, res, "TestStep", "Name")
	}
	status := func(op query.Operator, operand value.Value) query.Condition {
		return query.Condition{Element: testutil.TestStepID, Column: "Status", Operator: op, Operand: operand}
	}

	assert.Equal(t, []string{"T2"}, names(status(query.OpEQ, value.NewEnum(2))))
	assert.Equal(t, []string{"T1", "T3"}, names(status(query.OpNEQ, value.NewEnum(2))), "absent passes the negation")
	assert.Equal(t, []string{"T1", "T2"}, names(status(query.OpInSet, value.NewEnumSeq(1, 2))))

	parameters := query.Condition{Element: testutil.TestStepID, Column: "parameters", Operator: query.OpIsNull}
	assert.Equal(t, []string{"T3"}, names(parameters), "to-many relation without links")
}

func TestFilter_IsNullPartition(t *testing.T) {
	for _, column := range []string{"Duration", "Tags", "step", "Name"} {
		t.Run(column, func(t *testing.T) {
			isNull := measurementNames(t, mc(column, query.OpIsNull, value.Value{}))
			notNull := measurementNames(t, mc(column, query.OpIsNotNull, value.Value{}))

			for _, n := range isNull {
				assert.NotContains(t, notNull, n)
			}
			union := append(slices.Clone(isNull), notNull...)
			assert.ElementsMatch(t, allMeasurements, union)
		})
	}
}

func TestFilter_InSetComplement(t *testing.T) {
	operands := []struct {
		column  string
		operand value.Value
	}{
		{"Name", value.NewStringSeq("Run 1", "run 3")},
		{"Name", value.NewStringSeq()},
		{"Size", value.NewLongLongSeq(2, 9, 100)},
		{"Tags", value.NewStringSeq("warm", "bench")},
		{"step", value.NewLongLongSeq(10)},
	}

	for _, tt := range operands {
		t.Run(tt.column+"/"+tt.operand.String(), func(t *testing.T) {
			in := measurementNames(t, mc(tt.column, query.OpInSet, tt.operand))
			out := measurementNames(t, mc(tt.column, query.OpNotInSet, tt.operand))

			for _, n := range in {
				assert.NotContains(t, out, n)
			}
			assert.ElementsMatch(t, allMeasurements, append(slices.Clone(in), out...))
		})
	}
}

func TestFilter_TypeMismatchBeforeDataAccess(t *testing.T) {
	tests := []struct {
		name string
		cond query.Condition
	}{
		{"integer operand on string column", mc("Name", query.OpEQ, value.NewLongLong(1))},
		{"integer set on double column", mc("Duration", query.OpInSet, value.NewLongLongSeq(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.SampleStore()
			err := evaluateErr(t, s, &query.Query{
				Selects: sel(testutil.MeasurementID, "Name"),
				Where:   and(tt.cond),
			})
			assert.True(t, queryerr.Is(err, queryerr.CodeTypeMismatch), "got %v", err)
			assert.Equal(t, int64(1), s.Calls(), "only the element lookup")
		})
	}
}
