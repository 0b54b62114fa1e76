package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/engine"
)

func newTestQueryCommand(format, db string) *QueryOptions {
	return &QueryOptions{
		RootOptions: &RootOptions{Format: format, Database: db},
		IDGenerator: engine.NewFixedGenerator("eval-1"),
	}
}

func TestQueryJoinText(t *testing.T) {
	db := sampleDB(t)

	output, err := execute(newQueryCommand(newTestQueryCommand("text", db)), queryFile("parameters.yaml"))
	require.NoError(t, err)

	want := `TestStep (2 rows)
Id  Name
10  T1
11  T2

ParameterSet (2 rows)
Id  Name
20  P1
22  P3

Rows are joined pairs.
`
	assert.Equal(t, want, output)
}

func TestQueryWildcardShowsNull(t *testing.T) {
	db := sampleDB(t)

	output, err := execute(newQueryCommand(newTestQueryCommand("text", db)), queryFile("calibration.yaml"))
	require.NoError(t, err)

	want := `Measurement (1 rows)
Id  Name         Size  Duration  Tags   step
34  Calibration  5     NULL      bench  12
`
	assert.Equal(t, want, output)
}

func TestQueryMaxJSON(t *testing.T) {
	db := sampleDB(t)

	output, err := execute(newQueryCommand(newTestQueryCommand("json", db)), queryFile("max_size.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			EvalID   string `json:"eval_id"`
			Elements []struct {
				Element string `json:"element"`
				Columns []struct {
					Name   string            `json:"name"`
					Type   string            `json:"type"`
					Values []json.RawMessage `json:"values"`
				} `json:"columns"`
			} `json:"elements"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "eval-1", resp.Data.EvalID)
	require.Len(t, resp.Data.Elements, 1)
	el := resp.Data.Elements[0]
	assert.Equal(t, "Measurement", el.Element)
	require.Len(t, el.Columns, 1)
	assert.Equal(t, "Size", el.Columns[0].Name)
	assert.Equal(t, "DT_LONGLONG", el.Columns[0].Type)
	require.Len(t, el.Columns[0].Values, 1)
	assert.JSONEq(t, `{"type":"DT_LONGLONG","value":9}`, string(el.Columns[0].Values[0]))
}

func TestQueryRejected(t *testing.T) {
	db := sampleDB(t)

	tests := []struct {
		file string
		code string
	}{
		{"unknown_column.yaml", "NOT_FOUND"},
		{"or_filter.yaml", "UNSUPPORTED_FEATURE"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			output, err := execute(newQueryCommand(newTestQueryCommand("json", db)), queryFile(tt.file))
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(output), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestQueryCommandErrors(t *testing.T) {
	db := sampleDB(t)
	empty := filepath.Join(t.TempDir(), "empty.db")

	tests := []struct {
		name     string
		database string
		file     string
		contains string
	}{
		{"no database", "", queryFile("parameters.yaml"), "no database"},
		{"empty database", empty, queryFile("parameters.yaml"), "holds no model"},
		{"missing query file", db, queryFile("nope.yaml"), "Error [E003]: failed to read query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(newQueryCommand(newTestQueryCommand("text", tt.database)), tt.file)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, output, tt.contains)
		})
	}
}

func TestRenderResult(t *testing.T) {
	res := &engine.Result{Elements: []engine.ElementResult{{ElementName: "Unit"}}}

	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, res))
	assert.Equal(t, "Unit (0 rows)\n\n", buf.String())
}
