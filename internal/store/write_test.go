package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/testutil"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

func unitData(instances ...model.Instance) *model.Dataset {
	return &model.Dataset{Elements: []model.ElementData{{Element: "Unit", Instances: instances}}}
}

func TestLoad_Counts(t *testing.T) {
	s := createSampleStore(t)

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), counts["elements"])
	assert.Equal(t, int64(1), counts["enumerations"])
	assert.Equal(t, int64(19), counts["instances"])
	// 12 forward links, each mirrored on its inverse
	assert.Equal(t, int64(2*12), counts["links"])
}

func TestLoad_Idempotent(t *testing.T) {
	s := createSampleStore(t)
	ctx := context.Background()

	before, err := s.Counts(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, testutil.SampleModel(), testutil.SampleDataset()))
	after, err := s.Counts(ctx)
	require.NoError(t, err)

	assert.Equal(t, before, after)

	ids, err := s.Instances(ctx, testutil.MeasurementID)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 31, 32, 33, 34}, ids)
}

func TestLoad_AgainstStoredModel(t *testing.T) {
	s := createSampleStore(t)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, nil, unitData(model.Instance{
		ID:     3,
		Values: map[string]value.Value{"Name": value.NewString("min")},
	})))

	ids, err := s.Instances(ctx, testutil.UnitID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestLoad_OverwritesAndClearsValues(t *testing.T) {
	s := createSampleStore(t)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, nil, unitData(model.Instance{
		ID: 1,
		Values: map[string]value.Value{
			"Name":   value.NewString("second"),
			"Factor": value.Absent(value.DTDouble),
		},
	})))

	names, err := s.Values(ctx, testutil.UnitID, "Name", []int64{1})
	require.NoError(t, err)
	assert.Equal(t, "second", names[0].String())

	factors, err := s.Values(ctx, testutil.UnitID, "Factor", []int64{1})
	require.NoError(t, err)
	assert.False(t, factors[0].Present())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data *model.Dataset
		code queryerr.Code
	}{
		{
			name: "unknown element",
			data: &model.Dataset{Elements: []model.ElementData{{Element: "Nope", Instances: []model.Instance{{ID: 1}}}}},
			code: queryerr.CodeNotFound,
		},
		{
			name: "unknown attribute",
			data: unitData(model.Instance{ID: 9, Values: map[string]value.Value{"Nope": value.NewString("x")}}),
			code: queryerr.CodeNotFound,
		},
		{
			name: "unknown relation",
			data: unitData(model.Instance{ID: 9, Links: map[string][]int64{"nope": {1}}}),
			code: queryerr.CodeNotFound,
		},
		{
			name: "wrong value kind",
			data: unitData(model.Instance{ID: 9, Values: map[string]value.Value{"Factor": value.NewString("1")}}),
			code: queryerr.CodeTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createSampleStore(t)
			ctx := context.Background()
			before, err := s.Counts(ctx)
			require.NoError(t, err)

			err = s.Load(ctx, nil, tt.data)
			assert.True(t, queryerr.Is(err, tt.code), "got %v", err)

			after, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed load writes nothing")
		})
	}
}

func TestLoad_RejectsInconsistentModel(t *testing.T) {
	dup := testutil.SampleModel()
	dup.Elements[1].ID = dup.Elements[0].ID

	dangling := testutil.SampleModel()
	dangling.Elements[0].Relations[0].Target = 99

	for name, m := range map[string]*model.Model{"duplicate id": dup, "dangling relation": dangling} {
		t.Run(name, func(t *testing.T) {
			s := createTestStore(t)
			err := s.Load(context.Background(), m, nil)
			assert.Error(t, err)
			assert.Empty(t, s.Model().Elements)
		})
	}
}
