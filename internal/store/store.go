package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// pragmas are applied on Open. WAL keeps readers unblocked during a load.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migration upgrades a database from version-1 to version.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

// migrations run in order on databases whose user_version is older.
// schema.sql always describes the latest layout.
var migrations = []migration{
	{version: 1, apply: addAttributeIndex},
	{version: 2, apply: sequencesToJSON},
}

// Store is an Instance Store backed by SQLite.
//
// The meta-model is read once on Open and after every Load; element lookups
// are served from memory and hand out shared, read-only pointers.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	model *model.Model
}

// Open opens the database at path, creating and migrating it as needed.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: a single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return s.reloadModel(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Model returns the stored meta-model. The result is shared; do not modify it.
func (s *Store) Model() *model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// migrate applies every migration newer than the database, each in its own
// transaction together with the version bump.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// addAttributeIndex covers databases created before schema.sql carried the
// attribute lookup index.
func addAttributeIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_values_attribute
		ON attribute_values(element_id, attribute)
	`)
	return err
}

// sequencesToJSON rewrites byte-string and external-reference sequences
// stored in their comma-joined text form as JSON arrays.
func sequencesToJSON(tx *sql.Tx) error {
	rows, err := tx.Query(`
		SELECT element_id, instance_id, attribute, data_type, value
		FROM attribute_values
		WHERE data_type IN (?, ?)
	`, value.DSByteStr.String(), value.DSExtRef.String())
	if err != nil {
		return err
	}

	type update struct {
		elementID, instanceID int64
		attribute, text       string
	}
	var updates []update
	for rows.Next() {
		var (
			u        update
			typeName string
			old      string
		)
		if err := rows.Scan(&u.elementID, &u.instanceID, &u.attribute, &typeName, &old); err != nil {
			rows.Close()
			return err
		}
		var items []string
		if json.Unmarshal([]byte(old), &items) == nil {
			continue
		}
		dt, err := value.ParseDataType(typeName)
		if err != nil {
			rows.Close()
			return err
		}
		v, err := value.FromString(dt, old)
		if err != nil {
			rows.Close()
			return fmt.Errorf("value of instance %d: %w", u.instanceID, err)
		}
		if u.text, err = marshalValue(v); err != nil {
			rows.Close()
			return err
		}
		updates = append(updates, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range updates {
		if _, err := tx.Exec(`
			UPDATE attribute_values SET value = ?
			WHERE element_id = ? AND instance_id = ? AND attribute = ?
		`, u.text, u.elementID, u.instanceID, u.attribute); err != nil {
			return err
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if got != expected {
		return fmt.Errorf("%s = %q, expected %q", name, got, expected)
	}
	return nil
}
