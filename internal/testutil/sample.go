package testutil

import (
	"maps"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Element ids of the sample model.
const (
	UnitID         int64 = 1
	TestStepID     int64 = 2
	ParameterSetID int64 = 3
	MeasurementID  int64 = 4
	LocalColumnID  int64 = 5
	ChannelID      int64 = 6
)

var (
	toOne  = model.Range{Min: 0, Max: 1}
	oneOne = model.Range{Min: 1, Max: 1}
	many   = model.Range{Min: 0, Max: model.Many}
)

func idAttr() *model.Attribute {
	return &model.Attribute{Name: "Id", BaseName: "id", DataType: value.DTLongLong}
}

func nameAttr() *model.Attribute {
	return &model.Attribute{Name: "Name", BaseName: "name", DataType: value.DTString}
}

// SampleModel returns a small measurement meta-model:
//
//	Unit         Id Name Factor           columns → LocalColumn (many)
//	TestStep     Id Name Status Version   parameters ↔ ParameterSet (many-to-many)
//	                                      results → Measurement (many, inverse one)
//	ParameterSet Id Name                  parent_steps ↔ TestStep
//	Measurement  Id Name Size Duration Tags   step → TestStep (one)
//	LocalColumn  Id Name Values(bulk)     unit → Unit (to-one), channels → Channel (many)
//	Channel      Id Name                  column → LocalColumn (to-one)
func SampleModel() *model.Model {
	return &model.Model{
		Elements: []*model.Element{
			{
				ID: UnitID, Name: "Unit", BaseType: "AoUnit",
				Attributes: []*model.Attribute{
					idAttr(), nameAttr(),
					{Name: "Factor", BaseName: "factor", DataType: value.DTDouble},
				},
				Relations: []*model.Relation{
					{Name: "columns", Source: UnitID, Target: LocalColumnID, Range: many, InverseName: "unit", InverseRange: toOne},
				},
			},
			{
				ID: TestStepID, Name: "TestStep", BaseType: "AoSubTest",
				Attributes: []*model.Attribute{
					idAttr(), nameAttr(),
					{Name: "Status", DataType: value.DTEnum, Enumeration: "step_status"},
					{Name: "Version", BaseName: "version", DataType: value.DTLong},
				},
				Relations: []*model.Relation{
					{Name: "parameters", Source: TestStepID, Target: ParameterSetID, Range: many, InverseName: "parent_steps", InverseRange: many},
					{Name: "results", Source: TestStepID, Target: MeasurementID, Range: many, InverseName: "step", InverseRange: oneOne},
				},
			},
			{
				ID: ParameterSetID, Name: "ParameterSet", BaseType: "AoParameterSet",
				Attributes: []*model.Attribute{idAttr(), nameAttr()},
				Relations: []*model.Relation{
					{Name: "parent_steps", Source: ParameterSetID, Target: TestStepID, Range: many, InverseName: "parameters", InverseRange: many},
				},
			},
			{
				ID: MeasurementID, Name: "Measurement", BaseType: "AoMeasurement",
				Attributes: []*model.Attribute{
					idAttr(), nameAttr(),
					{Name: "Size", DataType: value.DTLongLong},
					{Name: "Duration", DataType: value.DTDouble},
					{Name: "Tags", DataType: value.DSString},
				},
				Relations: []*model.Relation{
					{Name: "step", Source: MeasurementID, Target: TestStepID, Range: oneOne, InverseName: "results", InverseRange: many},
				},
			},
			{
				ID: LocalColumnID, Name: "LocalColumn", BaseType: "AoLocalColumn",
				Attributes: []*model.Attribute{
					idAttr(), nameAttr(),
					{Name: "Values", BaseName: "values", DataType: value.DSDouble},
				},
				Relations: []*model.Relation{
					{Name: "unit", Source: LocalColumnID, Target: UnitID, Range: toOne, InverseName: "columns", InverseRange: many},
					{Name: "channels", Source: LocalColumnID, Target: ChannelID, Range: many, InverseName: "column", InverseRange: toOne},
				},
			},
			{
				ID: ChannelID, Name: "Channel", BaseType: "AoMeasurementQuantity",
				Attributes: []*model.Attribute{idAttr(), nameAttr()},
				Relations: []*model.Relation{
					{Name: "column", Source: ChannelID, Target: LocalColumnID, Range: toOne, InverseName: "channels", InverseRange: many},
				},
			},
		},
		Enumerations: []*model.Enumeration{
			{Name: "step_status", Items: []model.EnumItem{{Name: "running", Code: 1}, {Name: "done", Code: 2}}},
		},
	}
}

func named(name string, extra map[string]value.Value) map[string]value.Value {
	values := map[string]value.Value{"Name": value.NewString(name)}
	maps.Copy(values, extra)
	return values
}

// SampleDataset returns this data for SampleModel:
//
//	Unit         1 "s" (1)   2 "ms" (0.001)
//	TestStep     10 "T1"     11 "T2"     12 "T3" (no status)
//	ParameterSet 20 "P1"     21 "P2"     22 "P3"     23 "P4"
//	Measurement  30..34 "Run 1" "Run 2" "run 3" "Run*4" "Calibration", Size 3 7 2 9 5
//	LocalColumn  40 "time"   41 "speed"  42 "raw"
//	Channel      50 "ch1"    51 "ch2"
//
// Links: T1 parameters [P1 P2], T2 [P3], T3 none; results T1 [30 31],
// T2 [32], T3 [33 34]; time→s, speed→ms, raw no unit; time channels
// [ch1 ch2]. Inverse links are implied. Id values are left to the store.
func SampleDataset() *model.Dataset {
	measurements := []struct {
		name     string
		size     int64
		duration value.Value
		tags     value.Value
	}{
		{"Run 1", 3, value.NewDouble(1.5), value.NewStringSeq("warm", "road")},
		{"Run 2", 7, value.NewDouble(2.25), value.NewStringSeq("cold")},
		{"run 3", 2, value.NewDouble(0.5), value.NewStringSeq()},
		{"Run*4", 9, value.NewDouble(4), value.Absent(value.DSString)},
		{"Calibration", 5, value.Absent(value.DTDouble), value.NewStringSeq("bench")},
	}
	var runs []model.Instance
	for i, row := range measurements {
		runs = append(runs, model.Instance{
			ID: int64(30 + i),
			Values: named(row.name, map[string]value.Value{
				"Size":     value.NewLongLong(row.size),
				"Duration": row.duration,
				"Tags":     row.tags,
			}),
		})
	}

	var parameterSets []model.Instance
	for i, name := range []string{"P1", "P2", "P3", "P4"} {
		parameterSets = append(parameterSets, model.Instance{ID: int64(20 + i), Values: named(name, nil)})
	}

	return &model.Dataset{Elements: []model.ElementData{
		{Element: "Unit", Instances: []model.Instance{
			{ID: 1, Values: named("s", map[string]value.Value{"Factor": value.NewDouble(1)})},
			{ID: 2, Values: named("ms", map[string]value.Value{"Factor": value.NewDouble(0.001)})},
		}},
		{Element: "TestStep", Instances: []model.Instance{
			{
				ID:     10,
				Values: named("T1", map[string]value.Value{"Status": value.NewEnum(1), "Version": value.NewLong(1)}),
				Links:  map[string][]int64{"parameters": {20, 21}, "results": {30, 31}},
			},
			{
				ID:     11,
				Values: named("T2", map[string]value.Value{"Status": value.NewEnum(2), "Version": value.NewLong(2)}),
				Links:  map[string][]int64{"parameters": {22}, "results": {32}},
			},
			{
				ID:     12,
				Values: named("T3", map[string]value.Value{"Version": value.NewLong(0)}),
				Links:  map[string][]int64{"results": {33, 34}},
			},
		}},
		{Element: "ParameterSet", Instances: parameterSets},
		{Element: "Measurement", Instances: runs},
		{Element: "LocalColumn", Instances: []model.Instance{
			{
				ID:     40,
				Values: named("time", map[string]value.Value{"Values": value.Of(value.DoubleSeq{0, 0.5, 1})}),
				Links:  map[string][]int64{"unit": {1}, "channels": {50, 51}},
			},
			{
				ID:     41,
				Values: named("speed", map[string]value.Value{"Values": value.Of(value.DoubleSeq{10, 12.5, 13})}),
				Links:  map[string][]int64{"unit": {2}},
			},
			{ID: 42, Values: named("raw", nil)},
		}},
		{Element: "Channel", Instances: []model.Instance{
			{ID: 50, Values: named("ch1", nil)},
			{ID: 51, Values: named("ch2", nil)},
		}},
	}}
}

// SampleStore returns a MemStore holding SampleModel and SampleDataset.
func SampleStore() *MemStore {
	s := NewMemStore()
	m := SampleModel()
	for _, e := range m.Elements {
		s.AddElement(e)
	}
	for _, e := range m.Enumerations {
		s.AddEnumeration(e)
	}
	s.MustLoad(SampleDataset())
	return s
}
