package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModelOnly(t *testing.T) {
	output, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "--model", sampleModelDir)
	require.NoError(t, err)
	assert.Equal(t, "✓ Model valid (6 elements)\n", output)
}

func TestValidateQueriesAgainstModel(t *testing.T) {
	output, err := execute(NewValidateCommand(&RootOptions{Format: "text"}),
		"--model", sampleModelDir,
		queryFile("parameters.yaml"), queryFile("max_size.yaml"), queryFile("calibration.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "✓ All 3 queries valid\n", output)
}

func TestValidateQueriesAgainstDatabase(t *testing.T) {
	db := sampleDB(t)

	output, err := execute(NewValidateCommand(&RootOptions{Format: "json", Database: db}), queryFile("parameters.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 6, resp.Data.Elements)
}

func TestValidateInvalidQueries(t *testing.T) {
	output, err := execute(NewValidateCommand(&RootOptions{Format: "json"}),
		"--model", sampleModelDir,
		queryFile("parameters.yaml"), queryFile("unknown_column.yaml"), queryFile("or_filter.yaml"), queryFile("nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	var files, codes []string
	for _, e := range resp.Data.Errors {
		files = append(files, filepath.Base(e.File))
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"unknown_column.yaml", "or_filter.yaml", "nope.yaml"}, files)
	assert.Equal(t, []string{"NOT_FOUND", "UNSUPPORTED_FEATURE", ErrCodeLoadFailed}, codes)
}

func TestValidateBrokenModel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", "package m\nelement: {")

	output, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "--model", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, dir+" line 2")
}

func TestValidateCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     *RootOptions
		args     []string
		contains string
	}{
		{"nothing to validate", &RootOptions{Format: "text"}, nil, "nothing to validate"},
		{"no model source", &RootOptions{Format: "text"}, []string{queryFile("parameters.yaml")}, "no database"},
		{"missing model directory", &RootOptions{Format: "text"}, []string{"--model", filepath.Join(t.TempDir(), "nope")}, "model directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(NewValidateCommand(tt.opts), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, output, tt.contains)
		})
	}
}
