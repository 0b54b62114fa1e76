package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandScenarios(t *testing.T) {
	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ parameter_join\n")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	output, err := execute(NewTestCommand(&RootOptions{Format: "json"}), scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTestCommandFilter(t *testing.T) {
	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", output)
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

// copyScenario writes a scenario into a temp directory, pointing it at the
// sample model and data.
func copyScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	model, err := filepath.Abs(sampleModelDir)
	require.NoError(t, err)
	data, err := filepath.Abs(sampleDataFile)
	require.NoError(t, err)
	writeFile(t, dir, "units.yaml", "name: units\nmodel: "+model+"\ndata: "+data+"\n"+body)
	return dir
}

const unitsSteps = `steps:
  - name: names
    query:
      select: [{element: Unit, column: Name}]
`

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := copyScenario(t, unitsSteps)

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ units (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "units.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "units"`)
	assert.Contains(t, string(golden), `"s"`)

	// A second run compares against the golden file.
	output, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ units\n")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenario(t, unitsSteps)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "units.golden", "{}\n")

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ units")
	assert.Contains(t, output, "do not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := copyScenario(t, unitsSteps+`assertions:
  - type: row_count
    step: names
    element: Unit
    count: 5
`)

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ units")
	assert.Contains(t, output, "Assertion failed: row_count (step names)")
	assert.Contains(t, output, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yml", "name: broken\n")

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, output, "✗ broken.yml")
	assert.Contains(t, output, "failed to load scenario")
}
