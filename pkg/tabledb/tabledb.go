// Package tabledb is the public surface of the data-access layer: connect
// to a MySQL database with a pooled connection, manage table lifecycle
// (exists / create / drop / temporary tables with collision retry) and run
// parameterized CRUD on bound table handles.
//
// Every operation has a context-taking form and a blocking convenience
// form without a context, following the database/sql Query/QueryContext
// convention.
package tabledb

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nikhilpatra/tabledb/internal/config"
	"github.com/nikhilpatra/tabledb/internal/database"
	"github.com/nikhilpatra/tabledb/internal/sqlutil"
)

// Config holds connection parameters and pool sizing. See DefaultConfig,
// LoadConfig and LoadConfigFromEnv for the supported sources.
type Config = config.Config

// Re-exported building blocks for schemas, filters and result rows.
type (
	// Column is one column definition for CreateTable.
	Column = database.Column
	// Schema is an ordered list of column definitions.
	Schema = database.Schema
	// ColumnValue pairs a column with a value for Insert and Update.
	ColumnValue = database.ColumnValue
	// Values is an ordered list of column/value pairs.
	Values = database.Values
	// Row is one result row keyed by column name.
	Row = database.Row
	// Cond is a single WHERE predicate; build them with Eq and In.
	Cond = sqlutil.Cond
)

// Sentinel errors; check wrapped errors with errors.Is.
var (
	ErrTooManyAttempts = database.ErrTooManyAttempts
	ErrUnboundedDelete = database.ErrUnboundedDelete
	ErrClosed          = database.ErrClosed
)

// Eq matches rows whose column equals v.
func Eq(col string, v any) Cond { return sqlutil.Eq(col, v) }

// In matches rows whose column is one of vals. With no values the
// condition is unsatisfiable.
func In(col string, vals ...any) Cond { return sqlutil.In(col, vals...) }

// DefaultConfig returns the built-in defaults. Host, user and database
// name must still be filled in.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a YAML or JSON configuration file, chosen by extension.
func LoadConfig(path string) (Config, error) { return config.LoadFile(path) }

// LoadConfigFromEnv builds a configuration from TABLEDB_* environment
// variables.
func LoadConfigFromEnv() (Config, error) { return config.LoadEnv() }

// Database owns the connection pool for one MySQL database. All table
// handles created from it share the pool.
type Database struct {
	inner *database.Database
}

// ConnectContext opens the pool and verifies it with a bounded ping.
// Construction is all-or-nothing.
func ConnectContext(ctx context.Context, cfg Config, logger zerolog.Logger) (*Database, error) {
	inner, err := database.ConnectContext(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Database{inner: inner}, nil
}

// Connect is ConnectContext with context.Background().
func Connect(cfg Config, logger zerolog.Logger) (*Database, error) {
	return ConnectContext(context.Background(), cfg, logger)
}

// Close releases the connection pool.
func (d *Database) Close() error { return d.inner.Close() }

// Name returns the database (schema) name.
func (d *Database) Name() string { return d.inner.Name() }

// TableExistsContext reports whether the named table exists.
func (d *Database) TableExistsContext(ctx context.Context, name string) (bool, error) {
	return d.inner.TableExistsContext(ctx, name)
}

// TableExists is TableExistsContext with context.Background().
func (d *Database) TableExists(name string) (bool, error) {
	return d.inner.TableExists(name)
}

// CreateTableContext creates a table (IF NOT EXISTS). Every primaryKey
// entry must name a schema column; a violation panics.
func (d *Database) CreateTableContext(ctx context.Context, name string, schema Schema, primaryKey []string) error {
	return d.inner.CreateTableContext(ctx, name, schema, primaryKey)
}

// CreateTable is CreateTableContext with context.Background().
func (d *Database) CreateTable(name string, schema Schema, primaryKey []string) error {
	return d.inner.CreateTable(name, schema, primaryKey)
}

// DropTableContext drops the named tables in one statement; nonexistent
// tables are not an error.
func (d *Database) DropTableContext(ctx context.Context, names ...string) error {
	return d.inner.DropTableContext(ctx, names...)
}

// DropTable is DropTableContext with context.Background().
func (d *Database) DropTable(names ...string) error {
	return d.inner.DropTable(names...)
}

// OpenTableContext creates the table if needed and returns a bound handle.
func (d *Database) OpenTableContext(ctx context.Context, name string, schema Schema, primaryKey []string) (*Table, error) {
	t, err := d.inner.OpenTableContext(ctx, name, schema, primaryKey)
	if err != nil {
		return nil, err
	}
	return &Table{inner: t}, nil
}

// OpenTable is OpenTableContext with context.Background().
func (d *Database) OpenTable(name string, schema Schema, primaryKey []string) (*Table, error) {
	return d.OpenTableContext(context.Background(), name, schema, primaryKey)
}

// CreateTemporaryTableContext creates a table named "<root>-<suffix>" with
// a random 8-hex-digit suffix, retrying name collisions up to 5 times
// before failing with ErrTooManyAttempts.
func (d *Database) CreateTemporaryTableContext(ctx context.Context, root string, schema Schema, primaryKey []string) (*Table, error) {
	t, err := d.inner.CreateTemporaryTableContext(ctx, root, schema, primaryKey)
	if err != nil {
		return nil, err
	}
	return &Table{inner: t}, nil
}

// CreateTemporaryTable is CreateTemporaryTableContext with
// context.Background().
func (d *Database) CreateTemporaryTable(root string, schema Schema, primaryKey []string) (*Table, error) {
	return d.CreateTemporaryTableContext(context.Background(), root, schema, primaryKey)
}

// Table is a stateless handle for row operations on one table. Each
// operation runs a single autocommitted statement on a pooled connection.
type Table struct {
	inner *database.Table
}

// Name returns the table name, including any temporary-table suffix.
func (t *Table) Name() string { return t.inner.Name() }

// InsertContext inserts one row and returns the generated id (0 without
// an auto-increment column).
func (t *Table) InsertContext(ctx context.Context, values Values) (int64, error) {
	return t.inner.InsertContext(ctx, values)
}

// Insert is InsertContext with context.Background().
func (t *Table) Insert(values Values) (int64, error) {
	return t.inner.Insert(values)
}

// UpdateContext sets columns on rows matching the filters. An empty set
// list issues no statement at all.
func (t *Table) UpdateContext(ctx context.Context, where []Cond, set Values) error {
	return t.inner.UpdateContext(ctx, where, set)
}

// Update is UpdateContext with context.Background().
func (t *Table) Update(where []Cond, set Values) error {
	return t.inner.Update(where, set)
}

// SelectContext returns matching rows. nil columns selects everything; an
// empty non-nil slice panics.
func (t *Table) SelectContext(ctx context.Context, where []Cond, columns []string) ([]Row, error) {
	return t.inner.SelectContext(ctx, where, columns)
}

// Select is SelectContext with context.Background().
func (t *Table) Select(where []Cond, columns []string) ([]Row, error) {
	return t.inner.Select(where, columns)
}

// ExistsContext reports whether at least one row matches the filters.
func (t *Table) ExistsContext(ctx context.Context, where []Cond) (bool, error) {
	return t.inner.ExistsContext(ctx, where)
}

// Exists is ExistsContext with context.Background().
func (t *Table) Exists(where []Cond) (bool, error) {
	return t.inner.Exists(where)
}

// DeleteContext deletes matching rows; empty filters are rejected with
// ErrUnboundedDelete.
func (t *Table) DeleteContext(ctx context.Context, where []Cond) error {
	return t.inner.DeleteContext(ctx, where)
}

// Delete is DeleteContext with context.Background().
func (t *Table) Delete(where []Cond) error {
	return t.inner.Delete(where)
}

// DeleteAllContext deletes every row in the table.
func (t *Table) DeleteAllContext(ctx context.Context) error {
	return t.inner.DeleteAllContext(ctx)
}

// DeleteAll is DeleteAllContext with context.Background().
func (t *Table) DeleteAll() error {
	return t.inner.DeleteAll()
}
