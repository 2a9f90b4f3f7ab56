package query

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB is a SQLite-backed snapshot. Snapshot files are produced by an external
// export pipeline; the engine only ever reads from them.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens a snapshot database file
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// OpenWritable opens a snapshot database without the read-only pragma. Used
// by tooling and tests that build snapshot fixtures.
func OpenWritable(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Close closes the underlying database
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the snapshot file path
func (d *DB) Path() string {
	return d.path
}

// Select runs a read-only parameterized query and returns all rows with
// positional values matching the SELECT list.
func (d *DB) Select(ctx context.Context, stmt string, args []any) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make(Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// Exec runs a statement that modifies the snapshot. Only meaningful on
// writable handles.
func (d *DB) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := d.db.ExecContext(ctx, stmt, args...)
	return err
}

// InitSchema creates the snapshot tables. Used by fixture tooling and tests;
// real snapshots arrive with the schema already in place.
func (d *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS element (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL,
		model_id TEXT,
		parent_id TEXT,
		parent_class_id TEXT,
		label TEXT,
		code TEXT,
		json_properties TEXT
	);
	CREATE TABLE IF NOT EXISTS model (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL,
		modeled_element_id TEXT,
		is_private INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS class (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_class_id TEXT
	);
	CREATE TABLE IF NOT EXISTS model_source (
		model_id TEXT NOT NULL,
		file_name TEXT
	);
	CREATE TABLE IF NOT EXISTS property_label (
		name TEXT PRIMARY KEY,
		label TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_element_model ON element(model_id);
	CREATE INDEX IF NOT EXISTS idx_element_parent ON element(parent_id);
	CREATE INDEX IF NOT EXISTS idx_class_base ON class(base_class_id);
	`
	_, err := d.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("initialize snapshot schema: %w", err)
	}
	return nil
}

// Verify that *DB implements Executor at compile time
var _ Executor = (*DB)(nil)
