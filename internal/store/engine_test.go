package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/engine"
	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/testutil"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

var _ engine.InstanceStore = (*Store)(nil)

// TestEngineOverSQLite runs the same queries against the SQLite store and the
// in-memory fixture store and expects identical results.
func TestEngineOverSQLite(t *testing.T) {
	sqlite := createSampleStore(t)
	mem := testutil.SampleStore()

	newEngine := func(s engine.InstanceStore) *engine.Engine {
		return engine.New(s,
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			engine.WithIDGenerator(engine.NewFixedGenerator("eval")),
		)
	}

	queries := map[string]*query.Query{
		"wildcard": {Selects: []query.Select{{Element: testutil.MeasurementID, Column: query.Wildcard}}},
		"filtered": {
			Selects: []query.Select{{Element: testutil.MeasurementID, Column: "Name"}, {Element: testutil.MeasurementID, Column: "Tags"}},
			Where: []query.WhereItem{
				query.Condition{Element: testutil.MeasurementID, Column: "Name", Operator: query.OpCILike, Operand: value.NewString("run*")},
				query.And,
				query.Condition{Element: testutil.MeasurementID, Column: "Tags", Operator: query.OpIsNotNull},
			},
		},
		"max": {Selects: []query.Select{{Element: testutil.MeasurementID, Column: "Size", Aggregate: query.AggMax}}},
		"join": {
			Selects: []query.Select{
				{Element: testutil.TestStepID, Column: "Id"}, {Element: testutil.TestStepID, Column: "Name"},
				{Element: testutil.ParameterSetID, Column: "Id"}, {Element: testutil.ParameterSetID, Column: "Name"},
			},
			Joins: []query.Join{{Source: testutil.TestStepID, Target: testutil.ParameterSetID, Relation: "parameters"}},
		},
		"to-many relation": {Selects: []query.Select{
			{Element: testutil.LocalColumnID, Column: "Name"}, {Element: testutil.LocalColumnID, Column: "channels"},
		}},
	}

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			want, err := newEngine(mem).Evaluate(context.Background(), q)
			require.NoError(t, err)
			got, err := newEngine(sqlite).Evaluate(context.Background(), q)
			require.NoError(t, err)

			assert.Equal(t, want.Joined, got.Joined)
			require.Len(t, got.Elements, len(want.Elements))
			for i := range want.Elements {
				assert.Equal(t, want.Elements[i].ColumnNames(), got.Elements[i].ColumnNames())
				for _, col := range want.Elements[i].Columns {
					other := got.Elements[i].Column(col.Name)
					require.NotNil(t, other)
					require.Len(t, other.Values, len(col.Values))
					for row := range col.Values {
						assert.True(t, value.Equal(col.Values[row], other.Values[row]),
							"%s row %d: %v vs %v", col.Name, row, col.Values[row], other.Values[row])
					}
				}
			}
		})
	}
}
