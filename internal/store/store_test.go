package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/testutil"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Empty(t, s.Model().Elements)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"elements", "enumerations", "instances", "attribute_values", "links"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_ReopenKeepsModelAndData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Load(ctx, testutil.SampleModel(), testutil.SampleDataset()))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.Len(t, s2.Model().Elements, 6)
	assert.NotNil(t, s2.Model().Enumeration("step_status"))
	ids, err := s2.Instances(ctx, testutil.MeasurementID)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 31, 32, 33, 34}, ids)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.want))
		})
	}
}

func TestMigrations_UpgradeVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_values_attribute")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_values_attribute'",
	).Scan(&name)
	assert.NoError(t, err, "index missing after upgrade")
	assert.NoError(t, s.verifyPragma("user_version", "2"))
}

func TestMigrations_SequencesToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	rows := []struct {
		instance int64
		dataType string
		text     string
	}{
		{1, "DS_BYTESTR", "01 AB,FF"},
		{2, "DS_BYTESTR", ""},
		{3, "DS_EXTERNALREFERENCE", "d[m,l],raw[application/octet-stream,file:///r.bin]"},
		{4, "DS_BYTESTR", `["0A"]`},
		{5, "DS_STRING", `["a,b"]`},
	}
	for _, r := range rows {
		_, err = s.db.Exec(`INSERT INTO attribute_values (element_id, instance_id, attribute, data_type, value)
			VALUES (1, ?, 'Payload', ?, ?)`, r.instance, r.dataType, r.text)
		require.NoError(t, err)
	}
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.verifyPragma("user_version", "2"))

	want := map[int64]string{
		1: `["01 AB","FF"]`,
		2: `[]`,
		3: `["d[m,l]","raw[application/octet-stream,file:///r.bin]"]`,
		4: `["0A"]`,
		5: `["a,b"]`,
	}
	for id, text := range want {
		var got string
		require.NoError(t, s.db.QueryRow(
			"SELECT value FROM attribute_values WHERE instance_id = ?", id,
		).Scan(&got))
		assert.Equal(t, text, got, "instance %d", id)
	}
}
