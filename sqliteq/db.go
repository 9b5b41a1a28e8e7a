package sqliteq

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sequent"
	"github.com/roach88/sequent/expr"
)

// DB wraps a SQLite database queried through sequent sequences.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given path.
//
// The connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}
	return &DB{db: db}, nil
}

// Wrap adopts an already-open *sql.DB. The caller keeps ownership of the
// handle's lifecycle.
func Wrap(db *sql.DB) *DB {
	return &DB{db: db}
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SQL returns the underlying sql.DB for direct access. Prefer querying
// through Table sequences.
func (d *DB) SQL() *sql.DB { return d.db }

// Table returns a queryable sequence over one table, with rows scanned
// into T. Columns bind to exported struct fields via the `db` tag, falling
// back to the snake-cased field name.
func Table[T any](d *DB, name string) *sequent.Queryable[T] {
	elem := expr.TypeOf[T]()
	p := &provider{
		db:    d.db,
		table: name,
		elem:  elem,
		cols:  columnsOf(elem),
	}
	return sequent.New[T](p, &expr.Source{Name: name, Elem: elem})
}

// MapTable returns a queryable sequence over one table with rows scanned as
// map[string]any keyed by column name. It serves callers that have no
// static row type, such as queries assembled from definition files.
func MapTable(d *DB, name string) *sequent.Queryable[map[string]any] {
	elem := expr.TypeOf[map[string]any]()
	p := &provider{
		db:    d.db,
		table: name,
		elem:  elem,
	}
	return sequent.New[map[string]any](p, &expr.Source{Name: name, Elem: elem})
}
