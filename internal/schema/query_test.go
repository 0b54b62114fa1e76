package schema

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/testutil"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

func decode(t *testing.T, src string) *query.Query {
	t.Helper()
	q, err := DecodeQuery(strings.NewReader(src), testutil.SampleModel())
	require.NoError(t, err)
	return q
}

func TestDecodeQueryFull(t *testing.T) {
	q := decode(t, `
select:
  - {element: TestStep, column: Id}
  - {element: ParameterSet, column: "*"}
where:
  - {element: TestStep, column: Name, op: like, value: "T*"}
  - and
  - {element: ParameterSet, column: Name, op: NEQ, value: P2}
join:
  - {source: TestStep, target: ParameterSet, relation: parameters}
order_by:
  - {element: TestStep, column: Name, descending: true}
group_by:
  - {element: TestStep, column: Status}
`)

	want := &query.Query{
		Selects: []query.Select{
			{Element: testutil.TestStepID, Column: "Id"},
			{Element: testutil.ParameterSetID, Column: query.Wildcard},
		},
		Where: []query.WhereItem{
			query.Condition{Element: testutil.TestStepID, Column: "Name", Operator: query.OpLike, Operand: value.NewString("T*")},
			query.And,
			query.Condition{Element: testutil.ParameterSetID, Column: "Name", Operator: query.OpNEQ, Operand: value.NewString("P2")},
		},
		Joins:   []query.Join{{Source: testutil.TestStepID, Target: testutil.ParameterSetID, Relation: "parameters", Type: query.JoinInner}},
		OrderBy: []query.OrderBy{{Element: testutil.TestStepID, Column: "Name", Ascending: false}},
		GroupBy: []query.GroupBy{{Element: testutil.TestStepID, Column: "Status"}},
	}
	assert.Equal(t, want, q)
}

func TestDecodeQueryOperandTypes(t *testing.T) {
	tests := []struct {
		name string
		cond string
		want value.Value
	}{
		{
			name: "string attribute",
			cond: `{element: Measurement, column: Name, op: EQ, value: "7"}`,
			want: value.NewString("7"),
		},
		{
			name: "integral attribute",
			cond: `{element: TestStep, column: Version, op: GT, value: 1}`,
			want: value.NewLongLong(1),
		},
		{
			name: "integral set",
			cond: `{element: Measurement, column: Size, op: INSET, value: [3, 9]}`,
			want: value.NewLongLongSeq(3, 9),
		},
		{
			name: "enum by name",
			cond: `{element: TestStep, column: Status, op: EQ, value: done}`,
			want: value.NewEnum(2),
		},
		{
			name: "enum set",
			cond: `{element: TestStep, column: Status, op: INSET, value: [running, 2]}`,
			want: value.NewEnumSeq(1, 2),
		},
		{
			name: "relation",
			cond: `{element: TestStep, column: parameters, op: INSET, value: [20]}`,
			want: value.NewLongLongSeq(20),
		},
		{
			name: "double attribute compares as string",
			cond: `{element: Measurement, column: Duration, op: EQ, value: 1.5}`,
			want: value.NewString("1.5"),
		},
		{
			name: "explicit type",
			cond: `{element: Measurement, column: Name, op: EQ, value: 5, type: DT_LONGLONG}`,
			want: value.NewLongLong(5),
		},
		{
			name: "explicit sequence type is reduced to its element",
			cond: `{element: Measurement, column: Size, op: EQ, value: 5, type: DS_LONGLONG}`,
			want: value.NewLongLong(5),
		},
		{
			name: "null test ignores value",
			cond: `{element: Measurement, column: Tags, op: IS_NULL, value: x}`,
			want: value.Value{},
		},
		{
			name: "missing value",
			cond: `{element: Measurement, column: Name, op: EQ}`,
			want: value.Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := decode(t, "select: [{element: Measurement, column: Name}]\nwhere:\n  - "+tt.cond+"\n")
			conds := q.Conditions()
			require.Len(t, conds, 1)
			assert.True(t, value.Equal(tt.want, conds[0].Operand), "got %#v", conds[0].Operand)
		})
	}
}

func TestDecodeQueryCombinators(t *testing.T) {
	q := decode(t, `
select: [{element: Measurement, column: Name}]
where:
  - "("
  - {element: Measurement, column: Size, op: GT, value: 2}
  - OR
  - not
  - {element: Measurement, column: Size, op: LT, value: 9}
  - ")"
`)
	require.Len(t, q.Where, 6)
	assert.Equal(t, query.Open, q.Where[0])
	assert.Equal(t, query.Or, q.Where[2])
	assert.Equal(t, query.Not, q.Where[3])
	assert.Equal(t, query.Close, q.Where[5])
}

func TestDecodeQueryAggregateAndJoinType(t *testing.T) {
	q := decode(t, `
select: [{element: Measurement, column: Size, aggregate: max}]
join: [{source: TestStep, target: ParameterSet, relation: parameters, type: OUTER}]
`)
	assert.Equal(t, query.AggMax, q.Selects[0].Aggregate)
	assert.Equal(t, query.JoinOuter, q.Joins[0].Type)
}

func TestDecodeQueryRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code queryerr.Code
	}{
		{"unknown select element", "select: [{element: Nope, column: Name}]", queryerr.CodeNotFound},
		{"unknown where element", "where: [{element: Nope, column: Name, op: EQ, value: x}]", queryerr.CodeNotFound},
		{"unknown join element", "join: [{source: TestStep, target: Nope, relation: r}]", queryerr.CodeNotFound},
		{"unknown order element", "order_by: [{element: Nope, column: Name}]", queryerr.CodeNotFound},
		{"unknown group element", "group_by: [{element: Nope, column: Name}]", queryerr.CodeNotFound},
		{"unknown aggregate", "select: [{element: Measurement, column: Size, aggregate: MEDIAN}]", queryerr.CodeValidation},
		{"unknown operator", "where: [{element: Measurement, column: Size, op: ABOUT, value: 1}]", queryerr.CodeValidation},
		{"unknown combinator", "where: [xor]", queryerr.CodeValidation},
		{"unknown join type", "join: [{source: TestStep, target: ParameterSet, relation: parameters, type: cross}]", queryerr.CodeValidation},
		{"bad operand", "where: [{element: Measurement, column: Size, op: EQ, value: big}]", queryerr.CodeTypeMismatch},
		{"bad type name", "where: [{element: Measurement, column: Size, op: EQ, value: 1, type: DT_HUGE}]", queryerr.CodeTypeMismatch},
		{"no sequence kind", "where: [{element: Measurement, column: Size, op: INSET, value: [1], type: DT_BLOB}]", queryerr.CodeTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeQuery(strings.NewReader(tt.src), testutil.SampleModel())
			require.Error(t, err)
			assert.Equal(t, tt.code, queryerr.CodeOf(err), err.Error())
		})
	}
}

func TestDecodeQueryConditionValues(t *testing.T) {
	q := decode(t, `
select: [{element: Measurement, column: Name}]
where:
  - element: Measurement
    column: Name
    op: EQ
    value: Run 1
  - {element: Measurement, column: Tags, op: NEQ, value: ~}
  - {element: Measurement, column: Size, op: NOTINSET, value: [3, 9]}
`)
	conds := q.Conditions()
	require.Len(t, conds, 3)
	assert.True(t, value.Equal(value.NewString("Run 1"), conds[0].Operand), "got %#v", conds[0].Operand)
	assert.False(t, conds[1].Operand.Present())
	assert.True(t, value.Equal(value.NewLongLongSeq(3, 9), conds[2].Operand), "got %#v", conds[2].Operand)
}

func TestReadQueryFile(t *testing.T) {
	m, err := LoadModelDir(sampleModelDir)
	require.NoError(t, err)

	q, err := ReadQuery("../../testdata/queries/parameters.yaml", m)
	require.NoError(t, err)

	conds := q.Conditions()
	require.Len(t, conds, 1)
	assert.Equal(t, query.OpNEQ, conds[0].Operator)
	assert.True(t, value.Equal(value.NewString("P2"), conds[0].Operand), "got %#v", conds[0].Operand)
}

func TestDecodeQueryMalformedCondition(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown field", "where: [{element: Measurement, column: Name, op: EQ, valeu: x}]", `unknown condition field "valeu"`},
		{"list condition", "where: [[Measurement, Name]]", "condition must be a mapping"},
		{"non-scalar op", "where: [{element: Measurement, column: Name, op: [EQ]}]", "op:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeQuery(strings.NewReader(tt.src), testutil.SampleModel())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, queryerr.CodeOf(err))
		})
	}
}

func TestDecodeQueryUnknownField(t *testing.T) {
	_, err := DecodeQuery(strings.NewReader("select: []\nlimit: 3\n"), testutil.SampleModel())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestReadQueryMissingFile(t *testing.T) {
	_, err := ReadQuery(filepath.Join(t.TempDir(), "q.yaml"), testutil.SampleModel())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read query file")
}
