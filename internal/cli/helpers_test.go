package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	sampleModelDir = filepath.Join("..", "..", "testdata", "sample", "model")
	sampleDataFile = filepath.Join("..", "..", "testdata", "sample", "data.yaml")
	queriesDir     = filepath.Join("..", "..", "testdata", "queries")
	scenariosDir   = filepath.Join("..", "..", "testdata", "scenarios")
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// sampleDB loads the sample model and data into a fresh database file.
func sampleDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "sample.db")
	_, err := execute(NewLoadCommand(&RootOptions{Format: "text", Database: db}), sampleModelDir, sampleDataFile)
	require.NoError(t, err)
	return db
}

func queryFile(name string) string {
	return filepath.Join(queriesDir, name)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
