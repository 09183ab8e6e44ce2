// Package database is the data-access layer proper: a Database owning a
// pooled MySQL connection and handing out Table handles for row
// operations. Every operation acquires one pooled connection, runs exactly
// one autocommitted statement and releases the connection; no transactions
// are opened at this layer.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikhilpatra/tabledb/internal/config"
	"github.com/nikhilpatra/tabledb/internal/sqlutil"
)

// charset is fixed for every connection; it is not configurable.
const charset = "utf8mb4"

// tempTableAttempts bounds the temporary-table name-collision retry loop.
// With an 8-hex-digit suffix space of 16^8 names, exhausting the attempts
// indicates systemic misconfiguration rather than bad luck.
const tempTableAttempts = 5

// Column is one column definition: a name and an opaque MySQL type
// descriptor such as "INT" or "VARCHAR(255)".
type Column struct {
	Name string
	Type string
}

// Schema is an ordered list of column definitions. Order is preserved in
// the generated CREATE TABLE statement.
type Schema []Column

func (s Schema) has(name string) bool {
	for _, col := range s {
		if col.Name == name {
			return true
		}
	}
	return false
}

// Database owns the connection pool for one MySQL database and exposes
// the table lifecycle operations. It is safe for concurrent use; the pool
// serializes statements per connection.
type Database struct {
	db     *sql.DB
	name   string
	logger zerolog.Logger

	// tempAttempts is tempTableAttempts except in tests, which narrow it
	// to exercise the retry path deterministically.
	tempAttempts int

	closed bool
}

// ConnectContext opens the connection pool described by cfg and verifies
// it with a ping bounded by cfg.Pool.ConnectTimeout. Construction is
// all-or-nothing: on ping failure the pool is closed and an error is
// returned, so a partially-initialized Database is never observable.
func ConnectContext(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&timeout=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, charset, cfg.Pool.ConnectTimeout)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Pool.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	logger = logger.With().Str("component", "database").Str("db", cfg.Database).Logger()
	logger.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("Connected")

	return &Database{
		db:           db,
		name:         cfg.Database,
		logger:       logger,
		tempAttempts: tempTableAttempts,
	}, nil
}

// Connect is ConnectContext with context.Background().
func Connect(cfg config.Config, logger zerolog.Logger) (*Database, error) {
	return ConnectContext(context.Background(), cfg, logger)
}

// Close releases the connection pool. Further operations return ErrClosed.
func (d *Database) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// Name returns the database (schema) name the pool is bound to.
func (d *Database) Name() string {
	return d.name
}

// TableExistsContext reports whether a table with the given name exists in
// this database, via an INFORMATION_SCHEMA lookup.
func (d *Database) TableExistsContext(ctx context.Context, name string) (bool, error) {
	if d.closed {
		return false, ErrClosed
	}

	const query = "SELECT * FROM INFORMATION_SCHEMA.tables WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?"
	rows, err := d.db.QueryContext(ctx, query, d.name, name)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return exists, nil
}

// TableExists is TableExistsContext with context.Background().
func (d *Database) TableExists(name string) (bool, error) {
	return d.TableExistsContext(context.Background(), name)
}

// CreateTableContext creates a table with the given schema, tolerating an
// already-existing table of the same name (IF NOT EXISTS). A PRIMARY KEY
// clause is emitted only when primaryKey is non-empty.
//
// Every primaryKey entry must name a schema column; a violation is a
// programmer error and panics.
func (d *Database) CreateTableContext(ctx context.Context, name string, schema Schema, primaryKey []string) error {
	return d.createTable(ctx, name, schema, primaryKey, true)
}

// CreateTable is CreateTableContext with context.Background().
func (d *Database) CreateTable(name string, schema Schema, primaryKey []string) error {
	return d.CreateTableContext(context.Background(), name, schema, primaryKey)
}

func (d *Database) createTable(ctx context.Context, name string, schema Schema, primaryKey []string, canExist bool) error {
	for _, key := range primaryKey {
		if !schema.has(key) {
			panic(fmt.Sprintf("tabledb: primary key column %q is not part of the schema for table %q", key, name))
		}
	}

	if d.closed {
		return ErrClosed
	}

	defs := make([]string, 0, len(schema)+1)
	for _, col := range schema {
		defs = append(defs, sqlutil.QuoteIdent(col.Name)+" "+col.Type)
	}
	if len(primaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+sqlutil.QuoteIdents(primaryKey)+")")
	}

	stmt := "CREATE TABLE "
	if canExist {
		stmt += "IF NOT EXISTS "
	}
	stmt += sqlutil.QuoteIdent(name) + " (" + strings.Join(defs, ", ") + ")"

	d.logger.Debug().Str("table", name).Str("stmt", stmt).Msg("Creating table")
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// DropTableContext drops all named tables in one DROP TABLE IF EXISTS
// statement. Nonexistent tables are not an error. With no names it is a
// no-op.
func (d *Database) DropTableContext(ctx context.Context, names ...string) error {
	if d.closed {
		return ErrClosed
	}
	if len(names) == 0 {
		return nil
	}

	stmt := "DROP TABLE IF EXISTS " + sqlutil.QuoteIdents(names)
	d.logger.Debug().Strs("tables", names).Msg("Dropping tables")
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to drop tables %s: %w", strings.Join(names, ","), err)
	}
	return nil
}

// DropTable is DropTableContext with context.Background().
func (d *Database) DropTable(names ...string) error {
	return d.DropTableContext(context.Background(), names...)
}

// OpenTableContext creates the table if it does not exist and returns a
// handle bound to it. On success the handle's name always corresponds to
// an existing table.
func (d *Database) OpenTableContext(ctx context.Context, name string, schema Schema, primaryKey []string) (*Table, error) {
	if err := d.createTable(ctx, name, schema, primaryKey, true); err != nil {
		return nil, err
	}
	return d.newTable(name), nil
}

// OpenTable is OpenTableContext with context.Background().
func (d *Database) OpenTable(name string, schema Schema, primaryKey []string) (*Table, error) {
	return d.OpenTableContext(context.Background(), name, schema, primaryKey)
}

// CreateTemporaryTableContext creates a table named "<root>-<suffix>" with
// a random 8-hex-digit suffix and returns its handle. Creation demands
// that the exact name not already exist, so a concurrent creator choosing
// the same suffix surfaces as a name collision; the collision class is
// retried with a fresh suffix up to 5 times before giving up with
// ErrTooManyAttempts. Any other error aborts immediately.
func (d *Database) CreateTemporaryTableContext(ctx context.Context, root string, schema Schema, primaryKey []string) (*Table, error) {
	for i := 0; i < d.tempAttempts; i++ {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		name := root + "-" + suffix

		err := d.createTable(ctx, name, schema, primaryKey, false)
		if err == nil {
			d.logger.Debug().Str("table", name).Msg("Created temporary table")
			return d.newTable(name), nil
		}
		if !isTableExistsErr(err) {
			return nil, err
		}
		d.logger.Warn().Str("table", name).Int("attempt", i+1).Msg("Temporary table name collision")
	}
	return nil, fmt.Errorf("failed to create temporary table %s: %w", root, ErrTooManyAttempts)
}

// CreateTemporaryTable is CreateTemporaryTableContext with
// context.Background().
func (d *Database) CreateTemporaryTable(root string, schema Schema, primaryKey []string) (*Table, error) {
	return d.CreateTemporaryTableContext(context.Background(), root, schema, primaryKey)
}

func (d *Database) newTable(name string) *Table {
	return &Table{
		db:     d,
		name:   name,
		logger: d.logger.With().Str("table", name).Logger(),
	}
}
