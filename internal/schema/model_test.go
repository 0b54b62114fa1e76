package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/testutil"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

const sampleModelDir = "../../testdata/sample/model"

func TestLoadModelDirMatchesFixture(t *testing.T) {
	m, err := LoadModelDir(sampleModelDir)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleModel(), m)
}

func TestLoadModelDirErrors(t *testing.T) {
	_, err := LoadModelDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model directory")

	file := filepath.Join(t.TempDir(), "model.cue")
	require.NoError(t, os.WriteFile(file, []byte("package m"), 0644))
	_, err = LoadModelDir(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestLoadModelDirSyntaxError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("package m\nelement: {"), 0644))

	_, err := LoadModelDir(dir)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
}

func TestCompileModelString(t *testing.T) {
	m, err := CompileModelString(`
		enumeration: kind: {a: 1, b: 2}
		element: A: {
			id: 7
			attributes: {
				Id:   {base_name: "id", type: "DT_LONGLONG"}
				Kind: {type: "DS_ENUM", enumeration: "kind"}
				Gain: {type: "DT_DOUBLE", unit: 3}
			}
			relations: bs: {target: "B", max: -1, inverse: "as", inverse_max: "many"}
		}
		element: B: {
			id: 8
			base_type: "AoTest"
		}
	`, "inline.cue")
	require.NoError(t, err)

	require.Len(t, m.Elements, 2)
	a := m.Element("A")
	require.NotNil(t, a)
	assert.Equal(t, []string{"Id", "Kind", "Gain"}, []string{a.Attributes[0].Name, a.Attributes[1].Name, a.Attributes[2].Name})
	assert.Equal(t, value.DSEnum, a.Attribute("Kind").DataType)
	assert.Equal(t, int64(3), a.Attribute("Gain").Unit)

	rel := a.Relation("bs")
	require.NotNil(t, rel)
	assert.Equal(t, int64(7), rel.Source)
	assert.Equal(t, int64(8), rel.Target)
	assert.True(t, rel.IsManyToMany(), "explicit inverse range is kept")

	assert.Equal(t, "AoTest", m.Element("B").BaseType)
	assert.Equal(t, []model.EnumItem{{Name: "a", Code: 1}, {Name: "b", Code: 2}}, m.Enumeration("kind").Items)
}

func TestCompileModelRejects(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "no elements",
			src:   `enumeration: e: {a: 1}`,
			field: "element",
			msg:   "at least one element",
		},
		{
			name:  "missing id",
			src:   `element: A: {base_type: "AoTest"}`,
			field: "element.A.id",
			msg:   "required",
		},
		{
			name:  "non-positive id",
			src:   `element: A: {id: 0}`,
			field: "element.A.id",
			msg:   "positive",
		},
		{
			name:  "duplicate id",
			src:   `element: A: {id: 1}, element: B: {id: 1}`,
			field: "element.B.id",
			msg:   "already used by A",
		},
		{
			name:  "missing type",
			src:   `element: A: {id: 1, attributes: Name: {base_name: "name"}}`,
			field: "element.A.attributes.Name",
			msg:   "type is required",
		},
		{
			name:  "unknown type",
			src:   `element: A: {id: 1, attributes: Name: {type: "DT_TEXT"}}`,
			field: "element.A.attributes.Name.type",
			msg:   "DT_TEXT",
		},
		{
			name:  "missing target",
			src:   `element: A: {id: 1, relations: r: {max: 1}}`,
			field: "element.A.relations.r.target",
			msg:   "required",
		},
		{
			name:  "unknown target",
			src:   `element: A: {id: 1, relations: r: {target: "Z"}}`,
			field: "element.A.relations.r.target",
			msg:   `unknown element "Z"`,
		},
		{
			name:  "bad max word",
			src:   `element: A: {id: 1, relations: r: {target: "A", max: "lots"}}`,
			field: "element.A.relations.r.max",
			msg:   "not a count",
		},
		{
			name:  "max below min",
			src:   `element: A: {id: 1, relations: r: {target: "A", min: 2, max: 1}}`,
			field: "element.A.relations.r.max",
			msg:   "below min",
		},
		{
			name:  "undeclared inverse",
			src:   `element: A: {id: 1, relations: r: {target: "B", inverse: "back"}}, element: B: {id: 2}`,
			field: "element.A.relations.r.inverse",
			msg:   "declares no relation",
		},
		{
			name: "inverse points elsewhere",
			src: `element: A: {id: 1, relations: r: {target: "B", inverse: "back"}}
				element: B: {id: 2, relations: back: {target: "C"}}
				element: C: {id: 3}`,
			field: "element.A.relations.r.inverse",
			msg:   "does not point back",
		},
		{
			name:  "enumeration on string",
			src:   `enumeration: e: {a: 1}, element: A: {id: 1, attributes: S: {type: "DT_STRING", enumeration: "e"}}`,
			field: "element.A.attributes.S.enumeration",
			msg:   "cannot reference",
		},
		{
			name:  "unknown enumeration",
			src:   `element: A: {id: 1, attributes: S: {type: "DT_ENUM", enumeration: "e"}}`,
			field: "element.A.attributes.S.enumeration",
			msg:   `unknown enumeration "e"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileModelString(tt.src, "bad.cue")
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.msg)
		})
	}
}

func TestCompileModelCUEError(t *testing.T) {
	_, err := CompileModelString(`element: A: {id: 1}, element: A: {id: 2}`, "conflict.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.Contains(t, err.Error(), "conflict.cue")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "element.A", Message: "boom"}
	assert.Equal(t, "element.A: boom", err.Error())
}
